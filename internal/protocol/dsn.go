package protocol

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiVersion = 7

type scheme string

const (
	schemeHTTP  scheme = "http"
	schemeHTTPS scheme = "https"
)

func (s scheme) defaultPort() int {
	switch s {
	case schemeHTTPS:
		return 443
	case schemeHTTP:
		return 80
	default:
		return 80
	}
}

// now is replaced in tests.
var now = time.Now

// DsnParseError represents an invalid DSN.
type DsnParseError struct {
	Message string
}

func (e *DsnParseError) Error() string {
	return "DsnParseError: " + e.Message
}

func dsnError(format string, args ...interface{}) error {
	return &DsnParseError{Message: fmt.Sprintf(format, args...)}
}

// Dsn is used as the remote address source to client transport.
// It is immutable once created and safe for concurrent use.
type Dsn struct {
	scheme    scheme
	publicKey string
	secretKey string
	host      string
	port      int
	path      string
	projectID int
}

// NewDsn creates a Dsn by parsing rawURL. Most users will never call this
// function directly. It is provided for use in custom Transport
// implementations.
func NewDsn(rawURL string) (*Dsn, error) {
	incomplete := func() error {
		return dsnError("the %q DSN must contain a scheme, a host, a user and a path component", rawURL)
	}

	// Parse
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, dsnError("the %q DSN is invalid: %v", rawURL, err)
	}

	if parsedURL.Scheme == "" {
		return nil, incomplete()
	}

	host := parsedURL.Hostname()
	if host == "" {
		return nil, incomplete()
	}

	if parsedURL.Path == "" {
		return nil, incomplete()
	}

	// PublicKey
	if parsedURL.User == nil || parsedURL.User.Username() == "" {
		return nil, incomplete()
	}
	publicKey := parsedURL.User.Username()

	// SecretKey
	var secretKey string
	if parsedSecretKey, ok := parsedURL.User.Password(); ok {
		if parsedSecretKey == "" {
			return nil, dsnError("the %q DSN must contain a valid secret key", rawURL)
		}
		secretKey = parsedSecretKey
	}

	// Scheme
	var s scheme
	switch parsedURL.Scheme {
	case "http":
		s = schemeHTTP
	case "https":
		s = schemeHTTPS
	default:
		return nil, dsnError("the scheme of the %q DSN must be either \"http\" or \"https\"", rawURL)
	}

	// Port
	port := s.defaultPort()
	if parsedURL.Port() != "" {
		parsedPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil || parsedPort <= 0 {
			return nil, dsnError("the %q DSN contains an invalid port", rawURL)
		}
		port = parsedPort
	}

	// ProjectID
	var segments []string
	for _, segment := range strings.Split(parsedURL.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		return nil, dsnError("the %q DSN must contain a valid project ID", rawURL)
	}
	projectID, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil || projectID < 0 {
		return nil, dsnError("the %q DSN must contain a valid project ID", rawURL)
	}

	// Path
	var path string
	if len(segments) > 1 {
		path = "/" + strings.Join(segments[:len(segments)-1], "/")
	}

	return &Dsn{
		scheme:    s,
		publicKey: publicKey,
		secretKey: secretKey,
		host:      host,
		port:      port,
		path:      path,
		projectID: projectID,
	}, nil
}

// String formats Dsn struct into a valid string url.
func (dsn Dsn) String() string {
	var url string
	url += fmt.Sprintf("%s://%s", dsn.scheme, dsn.publicKey)
	if dsn.secretKey != "" {
		url += fmt.Sprintf(":%s", dsn.secretKey)
	}
	url += fmt.Sprintf("@%s", dsn.hostPort())
	url += dsn.path
	url += fmt.Sprintf("/%d", dsn.projectID)
	return url
}

// Scheme returns the DSN scheme, "http" or "https".
func (dsn Dsn) Scheme() string {
	return string(dsn.scheme)
}

// Host returns the host the DSN points to.
func (dsn Dsn) Host() string {
	return dsn.host
}

// Port returns the port the DSN points to, the scheme default when none was given.
func (dsn Dsn) Port() int {
	return dsn.port
}

// PublicKey returns the public key used to authenticate requests.
func (dsn Dsn) PublicKey() string {
	return dsn.publicKey
}

// SecretKey returns the deprecated secret key, empty when absent.
func (dsn Dsn) SecretKey() string {
	return dsn.secretKey
}

// Path returns the base path preceding the project ID, empty or starting with "/".
func (dsn Dsn) Path() string {
	return dsn.path
}

// ProjectID returns the ID of the project events are sent to.
func (dsn Dsn) ProjectID() int {
	return dsn.projectID
}

// StoreAPIURL returns the URL of the store endpoint of the project.
func (dsn Dsn) StoreAPIURL() *url.URL {
	return dsn.apiURL("store")
}

// EnvelopeAPIURL returns the URL of the envelope endpoint of the project.
func (dsn Dsn) EnvelopeAPIURL() *url.URL {
	return dsn.apiURL("envelope")
}

func (dsn Dsn) apiURL(endpoint string) *url.URL {
	return &url.URL{
		Scheme: string(dsn.scheme),
		Host:   dsn.hostPort(),
		Path:   fmt.Sprintf("%s/api/%d/%s/", dsn.path, dsn.projectID, endpoint),
	}
}

// hostPort omits the port when it is the scheme default.
func (dsn Dsn) hostPort() string {
	if dsn.port != dsn.scheme.defaultPort() {
		return net.JoinHostPort(dsn.host, strconv.Itoa(dsn.port))
	}
	if strings.Contains(dsn.host, ":") {
		return "[" + dsn.host + "]"
	}
	return dsn.host
}

// AuthHeader returns the value of the X-Sentry-Auth header for a request
// sent by the given client. The timestamp is taken at call time.
func (dsn Dsn) AuthHeader(client string) string {
	auth := fmt.Sprintf("Sentry sentry_version=%d, sentry_key=%s, sentry_client=%s, sentry_timestamp=%d",
		apiVersion, dsn.publicKey, client, now().Unix())

	// The key sentry_secret is effectively deprecated and no longer needs to be set.
	// However, since it was required in older self-hosted versions,
	// it should still be passed through to Sentry if set.
	if dsn.secretKey != "" {
		auth = fmt.Sprintf("%s, sentry_secret=%s", auth, dsn.secretKey)
	}

	return auth
}

// MarshalJSON converts the Dsn struct to JSON.
func (dsn Dsn) MarshalJSON() ([]byte, error) {
	return json.Marshal(dsn.String())
}

// UnmarshalJSON converts JSON data to the Dsn struct.
func (dsn *Dsn) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	newDsn, err := NewDsn(str)
	if err != nil {
		return err
	}
	*dsn = *newDsn
	return nil
}
