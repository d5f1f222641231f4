// Package capture screenshots the printable term grid with headless
// Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/view"
)

// Default viewport: one landscape A4 page at 96 dpi.
const (
	DefaultWidth      = 1123
	DefaultHeight     = 794
	DefaultTimeoutSec = 30
)

var (
	ErrNoBaseURL    = errors.New("capture: base URL is required")
	ErrNoOutputPath = errors.New("capture: output path is required")
)

// Options defines one capture of /print/term.
type Options struct {
	// BaseURL of a running server, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// State selects the date and filter; the mode is always term.
	State view.State

	OutputPath string

	// Width and Height are the viewport in pixels. Zero picks the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero picks DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return ErrNoBaseURL
	}
	if o.OutputPath == "" {
		return ErrNoOutputPath
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// PrintURL is the address of the printable grid for st.
func PrintURL(baseURL string, st view.State) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("capture: bad base URL: %w", err)
	}
	u = u.JoinPath("print", "term")
	q := url.Values{}
	if st.SelectedDate != "" {
		q.Set("date", st.SelectedDate)
	}
	if st.Filter != "" {
		q.Set("filter", st.Filter)
	}
	for _, y := range st.Years {
		q.Add("year", strconv.Itoa(y))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TermPNG navigates headless Chromium to the print page, waits for
// [data-ready="true"] and writes a full-page PNG to opts.OutputPath on fsys.
func TermPNG(parentCtx context.Context, fsys afero.Fs, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	target, err := PrintURL(opts.BaseURL, opts.State)
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	appLog.Info("capture start", "url", target, "width", opts.Width, "height", opts.Height)

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// final paint
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := afero.WriteFile(fsys, opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("capture done", "path", opts.OutputPath, "bytes", len(png))
	return nil
}
