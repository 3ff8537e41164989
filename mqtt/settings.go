// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"crypto/tls"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sosodev/duration"
)

// Supported values of ConnectionSettings.Transport.
const (
	TransportTCP        = "tcp"
	TransportWebSockets = "websockets"
)

// ConnectionSettings describe how to reach and authenticate with a broker.
type ConnectionSettings struct {
	HostName        string
	TCPPort         uint16
	UseTLS          bool
	CleanSession    bool
	KeepAlive       uint16
	ClientID        string
	Username        string
	Password        string
	CAFile          string
	CAPath          string
	CertFile        string
	KeyFile         string
	KeyFilePassword string
	Transport       string
}

// DefaultEnvFile is read by LoadConnectionSettings when no file is named.
const DefaultEnvFile = ".env"

// settingKeys maps normalized setting names (lowercase, no separators) to the
// names users see in errors.
var settingKeys = map[string]string{
	"hostname":           "MQTT_HOST_NAME",
	"tcpport":            "MQTT_TCP_PORT",
	"usetls":             "MQTT_USE_TLS",
	"cleansession":       "MQTT_CLEAN_SESSION",
	"keepaliveinseconds": "MQTT_KEEP_ALIVE_IN_SECONDS",
	"keepalive":          "KeepAlive",
	"clientid":           "MQTT_CLIENT_ID",
	"username":           "MQTT_USERNAME",
	"password":           "MQTT_PASSWORD",
	"cafile":             "MQTT_CA_FILE",
	"capath":             "MQTT_CA_PATH",
	"certfile":           "MQTT_CERT_FILE",
	"keyfile":            "MQTT_KEY_FILE",
	"keyfilepassword":    "MQTT_KEY_FILE_PASSWORD",
	"transport":          "MQTT_TRANSPORT",
}

// LoadConnectionSettings reads MQTT_* settings. Values in envFile take
// precedence over the process environment, which takes precedence over the
// defaults. An empty envFile reads DefaultEnvFile if it exists.
func LoadConnectionSettings(envFile string) (*ConnectionSettings, error) {
	settings := parseEnv(os.Environ())

	fileVars, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	for k, v := range parseEnv(fileVars) {
		settings[k] = v
	}

	return fromSettingsMap(settings, false)
}

// ParseConnectionString reads settings from a connection string such as
// "HostName=localhost;TcpPort=1883;UseTls=false;KeepAlive=PT30S". Keys are
// case-insensitive and KeepAlive is an ISO 8601 duration.
func ParseConnectionString(connStr string) (*ConnectionSettings, error) {
	settings := make(map[string]string)
	for _, param := range strings.Split(strings.TrimSuffix(connStr, ";"), ";") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) == 2 {
			k := strings.ToLower(strings.TrimSpace(kv[0]))
			settings[k] = strings.TrimSpace(kv[1])
		}
	}
	return fromSettingsMap(settings, true)
}

func readEnvFile(envFile string) ([]string, error) {
	name := envFile
	if name == "" {
		name = DefaultEnvFile
	}

	vars, err := godotenv.Read(name)
	switch {
	case err == nil:
	case envFile == "" && errors.Is(err, fs.ErrNotExist):
		return nil, nil
	default:
		return nil, &SettingError{
			Setting: "env-file",
			Value:   name,
			message: "cannot read file",
			wrapped: err,
		}
	}

	res := make([]string, 0, len(vars))
	for k, v := range vars {
		res = append(res, k+"="+v)
	}
	return res, nil
}

// parseEnv normalizes MQTT_* variables, e.g. MQTT_HOST_NAME to hostname.
func parseEnv(env []string) map[string]string {
	settings := make(map[string]string)
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, "MQTT_") {
			continue
		}
		k = strings.ToLower(
			strings.ReplaceAll(strings.TrimPrefix(k, "MQTT_"), "_", ""),
		)
		settings[k] = strings.TrimSpace(v)
	}
	return settings
}

func fromSettingsMap(
	settings map[string]string,
	lenient bool,
) (*ConnectionSettings, error) {
	cs := &ConnectionSettings{
		TCPPort:      8883,
		UseTLS:       true,
		CleanSession: true,
		KeepAlive:    DefaultKeepAlive,
		Transport:    TransportTCP,
	}

	cs.HostName = settings["hostname"]
	if cs.HostName == "" {
		return nil, &SettingError{
			Setting: settingName("hostname", lenient),
			message: "must not be empty",
		}
	}

	var err error
	cs.TCPPort, err = parseUint16(settings, "tcpport", lenient, cs.TCPPort)
	if err != nil {
		return nil, err
	}
	cs.UseTLS, err = parseBool(settings, "usetls", lenient, cs.UseTLS)
	if err != nil {
		return nil, err
	}
	cs.CleanSession, err = parseBool(
		settings,
		"cleansession",
		lenient,
		cs.CleanSession,
	)
	if err != nil {
		return nil, err
	}
	cs.KeepAlive, err = parseUint16(
		settings,
		"keepaliveinseconds",
		lenient,
		cs.KeepAlive,
	)
	if err != nil {
		return nil, err
	}
	if value, ok := settings["keepalive"]; ok && value != "" {
		keepAlive, err := duration.Parse(value)
		if err != nil {
			return nil, &SettingError{
				Setting: "KeepAlive",
				Value:   value,
				message: "must be an ISO 8601 duration",
				wrapped: err,
			}
		}
		secs := keepAlive.ToTimeDuration().Seconds()
		if secs < 0 || secs > 65535 {
			return nil, &SettingError{
				Setting: "KeepAlive",
				Value:   value,
				message: "must be between 0 and 65535 seconds",
			}
		}
		cs.KeepAlive = uint16(secs)
	}

	assignIfExists(settings, "clientid", &cs.ClientID)
	assignIfExists(settings, "username", &cs.Username)
	assignIfExists(settings, "password", &cs.Password)
	assignIfExists(settings, "cafile", &cs.CAFile)
	assignIfExists(settings, "capath", &cs.CAPath)
	assignIfExists(settings, "certfile", &cs.CertFile)
	assignIfExists(settings, "keyfile", &cs.KeyFile)
	assignIfExists(settings, "keyfilepassword", &cs.KeyFilePassword)
	assignIfExists(settings, "transport", &cs.Transport)

	if err := cs.validate(lenient); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ConnectionSettings) validate(lenient bool) error {
	switch {
	case cs.Password != "" && cs.Username == "":
		return &SettingError{
			Setting: settingName("password", lenient),
			message: "requires a username",
		}
	case (cs.CertFile == "") != (cs.KeyFile == ""):
		return &SettingError{
			Setting: settingName("certfile", lenient),
			message: "certificate and key files must be provided together",
		}
	case !cs.UseTLS && (cs.CertFile != "" || cs.CAFile != "" || cs.CAPath != ""):
		return &SettingError{
			Setting: settingName("usetls", lenient),
			Value:   "false",
			message: "TLS files are set but TLS is disabled",
		}
	case cs.Transport != TransportTCP && cs.Transport != TransportWebSockets:
		return &SettingError{
			Setting: settingName("transport", lenient),
			Value:   cs.Transport,
			message: "must be tcp or websockets",
		}
	}
	return nil
}

// TLSConfig builds the TLS configuration for these settings, or returns nil
// when TLS is disabled.
func (cs *ConnectionSettings) TLSConfig() (*tls.Config, error) {
	if !cs.UseTLS {
		return nil, nil
	}

	config := &tls.Config{
		ServerName: cs.HostName,
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	if cs.CertFile != "" {
		var cert tls.Certificate
		var err error
		if cs.KeyFilePassword != "" {
			cert, err = loadX509KeyPairWithPassword(
				cs.CertFile,
				cs.KeyFile,
				[]byte(cs.KeyFilePassword),
			)
		} else {
			cert, err = tls.LoadX509KeyPair(cs.CertFile, cs.KeyFile)
		}
		if err != nil {
			return nil, &SettingError{
				Setting: "MQTT_CERT_FILE",
				Value:   cs.CertFile,
				message: "X509 key pair cannot be loaded",
				wrapped: err,
			}
		}
		config.Certificates = []tls.Certificate{cert}
	}

	if cs.CAFile != "" || cs.CAPath != "" {
		pool, err := loadCACertPool(cs.CAFile, cs.CAPath)
		if err != nil {
			return nil, &SettingError{
				Setting: "MQTT_CA_FILE",
				Value:   cs.CAFile + cs.CAPath,
				message: "cannot load a CA certificate pool",
				wrapped: err,
			}
		}
		config.RootCAs = pool
	}

	return config, nil
}

// ConnectionProvider returns a provider for the configured transport.
func (cs *ConnectionSettings) ConnectionProvider() (ConnectionProvider, error) {
	config, err := cs.TLSConfig()
	if err != nil {
		return nil, err
	}

	switch {
	case cs.Transport == TransportWebSockets:
		return WebSocketConnection(cs.HostName, cs.TCPPort, "", config), nil
	case config != nil:
		return TLSConnection(cs.HostName, cs.TCPPort, config), nil
	default:
		return TCPConnection(cs.HostName, cs.TCPPort), nil
	}
}

// ClientOptions returns the client options these settings imply.
func (cs *ConnectionSettings) ClientOptions() []Option {
	opts := []Option{
		WithClientID(cs.ClientID),
		WithKeepAlive(cs.KeepAlive),
	}
	if cs.Username != "" {
		opts = append(opts, WithUsername(cs.Username))
	}
	if cs.Password != "" {
		opts = append(opts, WithPassword([]byte(cs.Password)))
	}
	return opts
}

func parseBool(
	settings map[string]string,
	key string,
	lenient bool,
	def bool,
) (bool, error) {
	value, ok := settings[key]
	if !ok || value == "" {
		return def, nil
	}
	if lenient {
		value = strings.ToLower(value)
	}
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &SettingError{
			Setting: settingName(key, lenient),
			Value:   value,
			message: "must be true or false",
		}
	}
}

func parseUint16(
	settings map[string]string,
	key string,
	lenient bool,
	def uint16,
) (uint16, error) {
	value, ok := settings[key]
	if !ok || value == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, &SettingError{
			Setting: settingName(key, lenient),
			Value:   value,
			message: "must be an integer between 0 and 65535",
			wrapped: err,
		}
	}
	return uint16(n), nil
}

// settingName returns the user-facing name of a setting. Connection strings
// keep the normalized key.
func settingName(key string, lenient bool) string {
	if lenient {
		return key
	}
	if n, ok := settingKeys[key]; ok {
		return n
	}
	return key
}

func assignIfExists(settings map[string]string, key string, field *string) {
	if value, exists := settings[key]; exists && value != "" {
		*field = value
	}
}
