package web

import (
	"bytes"
	_ "embed"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed help.md
var helpMarkdown []byte

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

const helpPageHead = `<!DOCTYPE html>
<html lang="zh-Hant">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Rollcall help</title></head>
<body>
`

const helpPageTail = `</body>
</html>
`

func renderHelp() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(helpPageHead)
	if err := mdRenderer.Convert(helpMarkdown, &buf); err != nil {
		return nil, err
	}
	buf.WriteString(helpPageTail)
	return buf.Bytes(), nil
}

// handleHelp handles GET /help
func (s *server) handleHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.help)
}
