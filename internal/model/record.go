package model

// Fields 远端记录的字段集合
type Fields map[string]any

// RemoteRecord 远端表中的一条记录；ID 为空表示待创建
type RemoteRecord struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

// MatchMode 过滤条件的比较方式
type MatchMode int

const (
	MatchExact     MatchMode = iota // 精确相等
	MatchEqualFold                  // 忽略大小写相等
)

// Filter 单字段相等过滤
type Filter struct {
	Field string
	Value string
	Mode  MatchMode
}

// PendingWrite 待提交的比赛记录，保留业务主键用于批次失败时定位
type PendingWrite struct {
	Row    int // 源文件行号
	GameID string
	Record RemoteRecord
}
