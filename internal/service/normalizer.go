package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/model"
)

// scheduleLayout 源表格时间格式 M/D/YY H:MMam|pm
const scheduleLayout = "1/2/06 3:04pm"

const locationSeparator = " - "

var (
	levelCodeRe = regexp.MustCompile(`^\s*(\d+)`)
	spacesRe    = regexp.MustCompile(`\s+`)
	meridiemRe  = regexp.MustCompile(`(?i)\s*([ap]m)$`)
)

// TimeParseError 时间字符串不符合 M/D/YY H:MMam|pm
type TimeParseError struct {
	Value string
	Err   error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("无法解析时间 %q: %v", e.Value, e.Err)
}

func (e *TimeParseError) Unwrap() []error { return []error{ErrInvalidRow, e.Err} }

// ParseScheduleTime 解析赛程时间。源数据是本地民用时间，统一按 loc 给出的固定偏移解释，
// 不做夏令时换算；两位年份一律视为 20YY。
func ParseScheduleTime(s string, loc *time.Location) (time.Time, error) {
	v := strings.ToLower(strings.TrimSpace(spacesRe.ReplaceAllString(s, " ")))
	v = meridiemRe.ReplaceAllString(v, "$1")
	if v == "" {
		return time.Time{}, &TimeParseError{Value: s, Err: fmt.Errorf("为空")}
	}
	t, err := time.ParseInLocation(scheduleLayout, v, loc)
	if err != nil {
		return time.Time{}, &TimeParseError{Value: s, Err: err}
	}
	if t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	return t, nil
}

// ToTitleCase 每个空白分隔的单词首字母大写、其余小写，保留原有空白
func ToTitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			start = true
			b.WriteRune(r)
		case start:
			start = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Normalizer 将一行原始数据转换为 CanonicalGame
type Normalizer struct {
	cols         config.ColumnConfig
	selfName     string
	loc          *time.Location
	levelPrefix  string
	labelWidth   int
	placeholders map[string]struct{}
}

func NewNormalizer(cfg *config.SyncConfig) *Normalizer {
	n := &Normalizer{
		cols:         cfg.Columns,
		selfName:     strings.ToLower(strings.TrimSpace(cfg.SelfName)),
		loc:          cfg.Location(),
		levelPrefix:  cfg.LevelPrefix,
		labelWidth:   cfg.LabelWidth,
		placeholders: map[string]struct{}{"": {}},
	}
	for _, p := range cfg.Placeholders {
		n.placeholders[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return n
}

// Normalize 缺少比赛编号返回 ErrSkipRow；其他错误均包装 ErrInvalidRow
func (n *Normalizer) Normalize(row model.RawRow) (*model.CanonicalGame, error) {
	gameID := strings.TrimSpace(row[n.cols.GameID])
	if gameID == "" {
		return nil, ErrSkipRow
	}

	location, field, err := splitLocation(row[n.cols.Location])
	if err != nil {
		return nil, err
	}
	if f := strings.TrimSpace(row[n.cols.Field]); n.cols.Field != "" && f != "" {
		field = f
	}

	scheduledAt, err := ParseScheduleTime(row[n.cols.DateTime], n.loc)
	if err != nil {
		return nil, err
	}

	home := strings.TrimSpace(row[n.cols.Home])
	away := strings.TrimSpace(row[n.cols.Away])
	if home == "" || away == "" {
		return nil, fmt.Errorf("%w: 主队或客队为空", ErrInvalidRow)
	}

	game := &model.CanonicalGame{
		GameID:      gameID,
		ScheduledAt: scheduledAt,
		HomeTeam:    home,
		AwayTeam:    away,
		Location:    location,
		Field:       field,
		Level:       n.levelCode(row[n.cols.Level]),
	}

	rawOfficials := make([]string, len(model.OfficialRoles))
	for i, role := range model.OfficialRoles {
		var raw string
		if i < len(n.cols.Officials) {
			raw = row[n.cols.Officials[i]]
		}
		rawOfficials[i] = raw
		game.Officials = append(game.Officials, model.OfficialSlot{Role: role, Name: n.cleanOfficial(raw)})
	}
	game.Position = n.assignPosition(row, rawOfficials)
	return game, nil
}

// splitLocation "<场馆> - <场地>"，按第一个分隔符切分，其余部分原样作为场地
func splitLocation(raw string) (string, string, error) {
	name, field, _ := strings.Cut(strings.TrimSpace(raw), locationSeparator)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: 场馆字段格式错误 %q", ErrInvalidRow, raw)
	}
	return ToTitleCase(name), strings.TrimSpace(field), nil
}

// levelCode "12U Something" -> "U12"；没有数字前缀时原样保留
func (n *Normalizer) levelCode(raw string) string {
	raw = strings.TrimSpace(raw)
	m := levelCodeRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return n.levelPrefix + m[1]
}

func (n *Normalizer) isPlaceholder(v string) bool {
	_, ok := n.placeholders[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// cleanOfficial 占位值返回 nil；否则去掉固定宽度的标签前缀后首字母大写
func (n *Normalizer) cleanOfficial(raw string) *string {
	v := strings.TrimSpace(raw)
	if n.isPlaceholder(v) {
		return nil
	}
	v = strings.TrimSpace(stripLabel(v, n.labelWidth))
	if n.isPlaceholder(v) {
		return nil
	}
	v = ToTitleCase(v)
	return &v
}

// stripLabel 去掉前 width 个字符的标签；标签在宽度内以 '.' 或 ':' 结束时只截到该处
func stripLabel(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	cut := width
	for i := 0; i < width; i++ {
		if runes[i] == '.' || runes[i] == ':' {
			cut = i + 1
			break
		}
	}
	return string(runes[cut:])
}

// assignPosition 显式的位置列优先；否则按 Center、AR1、AR2 顺序匹配本人姓名，都不匹配时为第四官员
func (n *Normalizer) assignPosition(row model.RawRow, rawOfficials []string) model.Role {
	if n.cols.Position != "" {
		if p := strings.TrimSpace(row[n.cols.Position]); p != "" {
			return model.Role(p)
		}
	}
	if n.selfName == "" {
		return ""
	}
	for i, raw := range rawOfficials {
		if strings.Contains(strings.ToLower(raw), n.selfName) {
			return model.OfficialRoles[i]
		}
	}
	return model.RoleFourth
}
