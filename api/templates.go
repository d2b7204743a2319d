package api

import (
	"bytes"
	"embed"
	"html/template"

	"spellgate/engine"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	pageLobby = "lobby"
	pageGame  = "game"
	partBoard = "board"
)

// 快照的结构由引擎决定，模板只通过这两个函数取值，缺字段或类型不对时得到空值
var templateFuncs = template.FuncMap{
	"field": field,
	"list":  list,
	"isMap": isMap,
}

// Templates 解析内置页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")
}

// field 取 map 里的字段，不是 map 或没有这个字段时返回空串
func field(v any, key string) any {
	var m map[string]any
	switch t := v.(type) {
	case engine.Snapshot:
		m = t
	case map[string]any:
		m = t
	default:
		return ""
	}
	value, ok := m[key]
	if !ok || value == nil {
		return ""
	}
	return value
}

// list 只有 JSON 数组才能 range
func list(v any) []any {
	items, _ := v.([]any)
	return items
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// renderBoard 渲染棋盘片段，先写进缓冲区，失败时调用方还能换成提示
func renderBoard(pages *template.Template, snapshot engine.Snapshot) (template.HTML, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, partBoard, snapshot); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
