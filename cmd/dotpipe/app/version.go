package app

import (
	"fmt"
	"io"

	"github.com/phillarmonic/figlet/figletlib"
)

// ShowVersion displays version information with ASCII art
func ShowVersion(w io.Writer, version, commit, date string) error {
	loader := figletlib.NewEmbededLoader()
	font, err := loader.GetFontByName("standard")
	if err != nil {
		return err
	}

	startColor, _ := figletlib.ParseColor("#00FF95")
	endColor, _ := figletlib.ParseColor("#00C2FF")
	gradient := figletlib.ColorConfig{
		Mode:       figletlib.ColorModeGradient,
		StartColor: startColor,
		EndColor:   endColor,
	}

	fmt.Fprintln(w)
	figletlib.PrintColoredMsg("dotpipe", font, 80, font.Settings(), "left", gradient)

	fmt.Fprintln(w, "dotpipe: pipeline macros for HTML pages")
	fmt.Fprintln(w, "By Phillarmonic Software <https://github.com/phillarmonic/dotpipe>")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Version %s\n", version)
	if commit != "unknown" {
		fmt.Fprintf(w, "commit: %s\n", commit)
	}
	if date != "unknown" {
		fmt.Fprintf(w, "built: %s\n", date)
	}
	return nil
}
