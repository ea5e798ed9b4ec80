// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// NetAddress holds structured network address data for host and port.
// It implements the pflag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// Flags holds the values bound to a flag set by [RegisterFlags]. Read them
// through [Flags.Config] after the set has been parsed.
type Flags struct {
	serverAddress     NetAddress
	grpcServerAddress NetAddress
	adapterAddress    string
	databaseDSN       string
	jsonConfigPath    string
	tokenSignKey      string
	tokenIssuer       string
	sessionToken      string
	hashKey           string
	logPath           string
	metricsAddress    string
	tokenDuration     time.Duration
	requestTimeout    time.Duration
	syncInterval      time.Duration
	requireEncryption bool
}

// RegisterFlags declares every configuration flag on fs.
//
// Flags:
//
//	-a                   server address in format [host]:[port]
//	--grpc-address       grpc server address in format [host]:[port]
//	--server             remote record store address used by the client
//	-d                   database DSN
//	-c/--config          json file path with configs
//	--token-sign-key     token signing key
//	--token-issuer       token issuer name
//	--token-duration     token duration (e.g., "1h", "30m")
//	--token              session bearer token of the client
//	--request-timeout    request timeout (e.g., "30s", "1m")
//	--sync-interval      background sync period
//	--hash-key           security hash key
//	--require-encryption refuse plaintext cache writes
//	--log-file           client log file
//	--metrics-address    client metrics listener
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}

	fs.VarP(&f.serverAddress, "address", "a", "Net address host:port")
	fs.Var(&f.grpcServerAddress, "grpc-address", "Net grpc server address host:port")
	fs.StringVar(&f.adapterAddress, "server", "", "Remote record store address")
	fs.StringVarP(&f.databaseDSN, "dsn", "d", "", "Database DSN")
	fs.StringVarP(&f.jsonConfigPath, "config", "c", "", "JSON config file path")
	fs.StringVar(&f.tokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&f.tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&f.tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	fs.StringVar(&f.sessionToken, "token", "", "Session bearer token")
	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&f.syncInterval, "sync-interval", 0, "Background sync interval")
	fs.StringVar(&f.hashKey, "hash-key", "", "Security hash key")
	fs.BoolVar(&f.requireEncryption, "require-encryption", false, "Refuse plaintext cache writes")
	fs.StringVar(&f.logPath, "log-file", "", "Client log file")
	fs.StringVar(&f.metricsAddress, "metrics-address", "", "Client metrics listener address")

	return f
}

// Config returns the flag layer as a [StructuredConfig]. Unset flags stay
// zero and therefore do not override other layers.
func (f *Flags) Config() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenSignKey:  f.tokenSignKey,
			TokenIssuer:   f.tokenIssuer,
			TokenDuration: f.tokenDuration,
			HashKey:       f.hashKey,
			SessionToken:  f.sessionToken,
		},
		Storage: Storage{
			DB:                DB{DSN: f.databaseDSN},
			RequireEncryption: f.requireEncryption,
		},
		Server: Server{
			HTTPAddress:    f.serverAddress.String(),
			GRPCAddress:    f.grpcServerAddress.String(),
			RequestTimeout: f.requestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    f.adapterAddress,
			RequestTimeout: f.requestTimeout,
		},
		Workers:      Workers{SyncInterval: f.syncInterval},
		Log:          Log{Path: f.logPath},
		Metrics:      Metrics{Address: f.metricsAddress},
		JSONFilePath: f.jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Type implements pflag.Value.
func (a *NetAddress) Type() string {
	return "host:port"
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
