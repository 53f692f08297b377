package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/postboard/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-m string   default policy for unmatched routes: permit | deny
//	-l string   log level
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-o string   comma-separated CORS origins (e.g., "https://a.example,https://b.example")
//
// Arguments are filtered with flagx.FilterArgs first so that -c and any
// flags owned by other components do not cause parse errors.
func parseFlags(config *Config, osArgs []string) error {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-d", "-s", "-t", "-m", "-l", "-u", "-p", "-b", "-g", "-e", "-o"})

	fs := flag.NewFlagSet("postboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.DefaultPolicy, "m", config.DefaultPolicy, "policy for routes without a rule: permit or deny")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	origins := fs.String("o", strings.Join(config.CORSAllowedOrigins, ","), "comma-separated CORS allowed origins")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "o":
			config.CORSAllowedOrigins = splitList(*origins)
		}
	})
	return nil
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
