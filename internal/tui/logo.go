package tui

import (
	_ "embed"
	"strings"

	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/version"
)

//go:embed logo.txt
var embeddedLogo string

func logoText() string {
	lines := strings.Split(strings.TrimRight(embeddedLogo, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return colorstr.Cyan(strings.Join(lines, "\n")) + " v" + version.AppVersion + "\n"
}
