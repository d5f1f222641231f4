package feed

import "errors"

var (
	// ErrEmptySource is returned when a feed has neither a URL nor a path.
	ErrEmptySource = errors.New("feed: source has no url or path")
	// ErrUnsupportedFormat is returned when a payload is neither CSV nor JSON.
	ErrUnsupportedFormat = errors.New("feed: unsupported format")
	// ErrNoCachedBody is returned on 304 Not Modified when nothing is cached.
	ErrNoCachedBody = errors.New("feed: not modified but no cached body")
)
