package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const minCompressSize = 1024

var gzipWrapper = mustGzipWrapper()

func mustGzipWrapper() func(http.Handler) http.HandlerFunc {
	wrapper, err := gzhttp.NewWrapper(gzhttp.MinSize(minCompressSize))
	if err != nil {
		panic(err)
	}
	return wrapper
}

// CompressionMiddleware gzips responses of at least minCompressSize bytes for clients that accept it.
func CompressionMiddleware(next http.Handler) http.Handler {
	return gzipWrapper(next)
}
