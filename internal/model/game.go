package model

import "time"

// RawRow 源表格中的一行（列名 -> 单元格文本），不保证唯一
type RawRow map[string]string

// SourceRow 带行号的原始行；Line 为源文件中的物理行号（表头为第1行），用于错误定位
type SourceRow struct {
	Line  int
	Cells RawRow
}

// Role 裁判执裁位置
type Role string

const (
	RoleCenter Role = "Center"
	RoleAR1    Role = "AR1"
	RoleAR2    Role = "AR2"
	RoleFourth Role = "4th Official" // 未匹配到任何位置时的兜底
)

// OfficialRoles 官员列按顺序对应的位置，判定本人位置时也按此优先级
var OfficialRoles = []Role{RoleCenter, RoleAR1, RoleAR2}

// OfficialSlot 某个位置上的裁判；Name 为 nil 表示该位置无人（空白/TBD/Unknown）
type OfficialSlot struct {
	Role Role
	Name *string
}

// CanonicalGame 规范化后的一场比赛
type CanonicalGame struct {
	GameID      string    // 业务主键（源数据提供的比赛编号）
	ScheduledAt time.Time // 开赛时间（绝对时间）
	HomeTeam    string
	AwayTeam    string
	Location    string
	Field       string // 场地编号，可为空
	Level       string // 级别代码，如 U12
	Position    Role   // 本人在该场比赛中的位置，未配置本人时为空
	Officials   []OfficialSlot
}

// EntityType 引用实体类型
type EntityType string

const (
	EntityTeam     EntityType = "team"
	EntityLocation EntityType = "location"
	EntityOfficial EntityType = "official"
)

// 比赛表字段名（与远端 Games 表一致）
const (
	FieldGameID   = "Game id"
	FieldPosition = "Position"
	FieldDate     = "Date"
	FieldHomeTeam = "Home Team"
	FieldAwayTeam = "Away Team"
	FieldLocation = "Location"
	FieldField    = "Field"
	FieldLevel    = "Level"
)
