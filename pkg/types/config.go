package types

import "time"

// APIConfig holds settings for the REST transport client.
type APIConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RateLimitPerSecond caps outbound calls per client instance. All
	// operations of one client share a single limiter.
	RateLimitPerSecond float64 `json:"rate_limit_per_second" yaml:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "note-export/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// InitPayloadEncoding selects how websocket.init_payload is decoded before
// it is sent down the socket.
type InitPayloadEncoding string

const (
	InitPayloadText   InitPayloadEncoding = "text"
	InitPayloadHex    InitPayloadEncoding = "hex"
	InitPayloadBase64 InitPayloadEncoding = "base64"
)

// WebSocketConfig holds settings for the socket transport client.
type WebSocketConfig struct {
	// Enabled turns the socket transport on. When false the exporter goes
	// straight to the REST fallback.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// URLTemplate is the socket endpoint with {kbGuid} and {docGuid}
	// placeholders, e.g. "wss://host/editor/{kbGuid}/{docGuid}".
	URLTemplate string `json:"url_template" yaml:"url_template" mapstructure:"url_template"`

	// EditorToken is a statically configured editor token. When set, the
	// per-document token-issuance call is skipped.
	EditorToken string `json:"editor_token,omitempty" yaml:"editor_token,omitempty" mapstructure:"editor_token"`

	// Origin and UserAgent are attached as headers at connect time.
	Origin    string `json:"origin,omitempty" yaml:"origin,omitempty" mapstructure:"origin"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty" mapstructure:"user_agent"`

	// Cookies is an optional Cookie header value.
	Cookies string `json:"cookies,omitempty" yaml:"cookies,omitempty" mapstructure:"cookies"`

	// AdditionalHeaders are extra headers attached at connect time.
	AdditionalHeaders map[string]string `json:"additional_headers,omitempty" yaml:"additional_headers,omitempty" mapstructure:"additional_headers"`

	// SkipTLSVerify relaxes TLS certificate verification.
	SkipTLSVerify bool `json:"skip_tls_verify" yaml:"skip_tls_verify" mapstructure:"skip_tls_verify"`

	// ConnectTimeout bounds the socket dial and handshake (default 10s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// MessageTimeout bounds each blocking receive in the message pump
	// (default 10s).
	MessageTimeout time.Duration `json:"message_timeout" yaml:"message_timeout" mapstructure:"message_timeout"`

	// InitPayload is an optional raw priming payload sent right after the
	// first handshake message, decoded per InitPayloadEncoding.
	InitPayload         string              `json:"init_payload,omitempty" yaml:"init_payload,omitempty" mapstructure:"init_payload"`
	InitPayloadEncoding InitPayloadEncoding `json:"init_payload_encoding,omitempty" yaml:"init_payload_encoding,omitempty" mapstructure:"init_payload_encoding"`
}

// ExportConfig holds settings for the export stage.
type ExportConfig struct {
	// OutputDir is the base directory for exported Markdown. Raw socket
	// payloads mirror into OutputDir/raw/ and metadata sidecars into
	// OutputDir/metadata/.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// FilenameLength is the maximum content-derived filename stem length
	// (default 15 characters).
	FilenameLength int `json:"filename_length" yaml:"filename_length" mapstructure:"filename_length"`

	// Incremental skips notes whose data-modified timestamp is unchanged
	// since the last run, tracked in the export-state database.
	Incremental bool `json:"incremental" yaml:"incremental" mapstructure:"incremental"`

	// StateDir is the directory for the export-state database
	// (default OutputDir).
	StateDir string `json:"state_dir,omitempty" yaml:"state_dir,omitempty" mapstructure:"state_dir"`
}

// KnowledgeBase describes one knowledge base the account can export from.
type KnowledgeBase struct {
	Name   string `json:"name" yaml:"name" mapstructure:"name"`
	GUID   string `json:"kb_guid" yaml:"kb_guid" mapstructure:"kb_guid"`
	Server string `json:"kb_server" yaml:"kb_server" mapstructure:"kb_server"`
}

// Config groups all stage configurations.
type Config struct {
	API       APIConfig       `json:"api" yaml:"api" mapstructure:"api"`
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket" mapstructure:"websocket"`
	Export    ExportConfig    `json:"export" yaml:"export" mapstructure:"export"`

	// KnowledgeBases lists the account's knowledge bases. The first entry
	// is the default; --kb selects another by GUID.
	KnowledgeBases []KnowledgeBase `json:"knowledge_bases" yaml:"knowledge_bases" mapstructure:"knowledge_bases"`

	// UserGUID and UserName identify the authenticated user for socket
	// handshakes.
	UserGUID string `json:"user_guid" yaml:"user_guid" mapstructure:"user_guid"`
	UserName string `json:"user_name" yaml:"user_name" mapstructure:"user_name"`
}
