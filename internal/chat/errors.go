package chat

import "errors"

var (
	// ErrCommandParse is reported for a malformed :use line. The loop continues.
	ErrCommandParse = errors.New("usage: " + LoadCommand + " <path>")
	// ErrNoDocumentLoaded is reported when a prompt uses the placeholder before
	// any document was loaded. The loop continues and the backend is not called.
	ErrNoDocumentLoaded = errors.New("specify a PDF with '" + LoadCommand + " <path>'")
	// ErrBackend wraps inference failures. It ends the session.
	ErrBackend = errors.New("backend failure")
)
