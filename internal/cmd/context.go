package cmd

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/config"
	"github.com/mkowalczk/jobscout/internal/ui"
)

type Context struct {
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}
