package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedScheme = errors.New("resource: unsupported scheme")
	ErrFetch             = errors.New("resource: could not fetch")
)

// Timeout for fetching remote resources.
var FetchTimeout = 30 * time.Second

var httpClient = &http.Client{}

// Resource is a readable stream backed by a local file or an http(s) URL.
// Meshes, textures and scene configs are all loaded through resources so
// that relative references resolve against the file that contains them.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Path returns the location of the resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Ext returns the lower-cased file extension of the resource including the
// leading dot.
func (r *Resource) Ext() string {
	return strings.ToLower(path.Ext(r.url.Path))
}

// IsRemote returns true if the resource is streamed over http(s).
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// NewResource opens the resource at location. Relative locations without
// a scheme are resolved against the directory of relTo when it is not nil.
// The caller must close the returned resource.
func NewResource(location string, relTo *Resource) (*Resource, error) {
	u, err := resolve(location, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch u.Scheme {
	case "":
		if reader, err = os.Open(filepath.Clean(u.Path)); err != nil {
			return nil, err
		}
	case "http", "https":
		if reader, err = fetch(u); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnsupportedScheme, u.Scheme)
	}

	return &Resource{ReadCloser: reader, url: u}, nil
}

// NewResourceFromStream wraps an in-memory stream. The name is used for
// extension detection and for resolving relative references.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	u, err := url.Parse(name)
	if err != nil {
		u = &url.URL{Path: name}
	}
	return &Resource{ReadCloser: io.NopCloser(source), url: u}
}

// Resolve returns the location NewResource would open for the given
// arguments without opening it.
func Resolve(location string, relTo *Resource) (string, error) {
	u, err := resolve(location, relTo)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func resolve(location string, relTo *Resource) (*url.URL, error) {
	u, err := url.Parse(strings.ReplaceAll(location, `\`, `/`))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "" || relTo == nil || filepath.IsAbs(u.Path) {
		return u, nil
	}

	if relTo.IsRemote() {
		return relTo.url.ResolveReference(u), nil
	}

	base, err := filepath.Abs(relTo.url.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", relTo.url.Path, err)
	}
	return &url.URL{Path: filepath.Join(filepath.Dir(base), u.Path)}, nil
}

func fetch(u *url.URL) (io.ReadCloser, error) {
	client := *httpClient
	client.Timeout = FetchTimeout

	resp, err := client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w '%s': %v", ErrFetch, u.String(), err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w '%s': status %d", ErrFetch, u.String(), resp.StatusCode)
	}
	return resp.Body, nil
}
