package commands

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// newProgress renders to w only when w is a terminal.
func newProgress(w io.Writer, enabled bool) *mpb.Progress {
	if f, ok := w.(*os.File); !ok || !enabled || !isatty.IsTerminal(f.Fd()) {
		w = nil
	}
	return mpb.New(mpb.WithOutput(w), mpb.WithWidth(48))
}

// percentBar tracks one file through the analysis checkpoints.
func percentBar(p *mpb.Progress, name string) *mpb.Bar {
	return p.AddBar(100,
		mpb.PrependDecorators(decor.Name(name, decor.WCSyncSpaceR)),
		mpb.AppendDecorators(decor.Percentage(decor.WC{W: 5})),
	)
}

// countBar tracks a batch of files.
func countBar(p *mpb.Progress, name string, total int) *mpb.Bar {
	return p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Name(" "),
			decor.EwmaETA(decor.ET_STYLE_GO, 30),
		),
	)
}

// finishBar drops a bar that will not reach its total.
func finishBar(bar *mpb.Bar, err error) {
	if err != nil || !bar.Completed() {
		bar.Abort(false)
	}
}
