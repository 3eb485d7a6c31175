package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed static/index.html
var widgetHTML string

var widgetTemplate = template.Must(template.New("widget").Parse(widgetHTML))

// renderWidget renders the chat page once at startup
func renderWidget(cfg WidgetConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := widgetTemplate.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("render widget: %w", err)
	}
	return buf.Bytes(), nil
}
