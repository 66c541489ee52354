package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/credgate/internal/flagx"
)

var serverFlags = []string{"-l", "-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-w", "-i", "-m", "-v", "-o"}

// minutesOrDuration is a flag.Value accepting either a bare integer number of
// minutes ("15") or a Go duration ("90s", "1h").
type minutesOrDuration struct{ d *time.Duration }

func (m minutesOrDuration) String() string {
	if m.d == nil {
		return "0s"
	}
	return m.d.String()
}

func (m minutesOrDuration) Set(s string) error {
	if n, err := strconv.Atoi(s); err == nil {
		*m.d = time.Duration(n) * time.Minute
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("want minutes or a duration, got %q", s)
	}
	*m.d = d
	return nil
}

// parseFlags overrides Config fields from the command line. It is the last
// layer applied by LoadConfig.
//
//	-l  HTTP listen address          -a  gRPC listen address
//	-d  PostgreSQL DSN               -s  token signing secret
//	-t  access token validity        -r  refresh token validity
//	-w  audit sink (postgres|s3)     -i  introspection service key
//	-m  auth requests per minute     -v  log level
//	-o  per-request timeout
//	-u -p -b -g -e  S3 user, password, bucket, region, endpoint
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("credgate", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP listen address")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC listen address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.Var(minutesOrDuration{&config.AccessTokenValidityDuration}, "t", "access token validity (minutes or duration)")
	fs.Var(minutesOrDuration{&config.RefreshTokenValidityDuration}, "r", "refresh token validity (minutes or duration)")

	fs.StringVar(&config.AuditSink, "w", config.AuditSink, "audit sink: postgres or s3")
	fs.StringVar(&config.IntrospectionKey, "i", config.IntrospectionKey, "introspection service key")
	fs.IntVar(&config.AuthRequestsPerMinute, "m", config.AuthRequestsPerMinute, "auth requests per minute per client IP, 0 disables")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.DurationVar(&config.RequestTimeout, "o", config.RequestTimeout, "per-request timeout")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 audit bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
