package server

// Config is the palaver server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// AllowImageURLs permits remote http(s) image URLs in addition to data URIs.
	AllowImageURLs bool
}
