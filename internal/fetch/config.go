package fetch

import (
	"io"

	"github.com/vbp1/datafetch/internal/filesync"
)

// Config collects what the orchestrator needs besides its collaborators.
// It lives apart from the CLI flags to avoid import cycles.
type Config struct {
	DBOnly    bool // skip the file stage
	FilesOnly bool // skip the database stage

	Folders []filesync.Mapping

	// Out receives stage headings and progress glyphs.
	Out io.Writer
}
