package airtable

import (
	"strings"

	"ScheduleSync/internal/model"
)

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// BuildFormula 将单字段过滤条件转换为 filterByFormula 表达式
//
//	{Game id} = '123'
//	LOWER({Name}) = LOWER('o\'brien fc')
func BuildFormula(f model.Filter) string {
	field := "{" + f.Field + "}"
	value := "'" + formulaEscaper.Replace(f.Value) + "'"
	if f.Mode == model.MatchEqualFold {
		return "LOWER(" + field + ") = LOWER(" + value + ")"
	}
	return field + " = " + value
}
