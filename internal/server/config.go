package server

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	Bind    string
	Static  string
	SSLCert string
	SSLKey  string
	Proxy   bool
	PProf   bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxBodySize caps request bodies in bytes, 0 disables the limit.
	MaxBodySize int64
}

func (Config) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("server.bind", "0.0.0.0:10200", "address/port/socket to serve the job api")
	if err := viper.BindPFlag("server.bind", cmd.PersistentFlags().Lookup("server.bind")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("server.static", "", "path to static files to serve")
	if err := viper.BindPFlag("server.static", cmd.PersistentFlags().Lookup("server.static")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("server.sslcert", "", "path to the SSL cert")
	if err := viper.BindPFlag("server.sslcert", cmd.PersistentFlags().Lookup("server.sslcert")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("server.sslkey", "", "path to the SSL key")
	if err := viper.BindPFlag("server.sslkey", cmd.PersistentFlags().Lookup("server.sslkey")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("server.proxy", false, "trust X-Forwarded-For and X-Real-IP from a reverse proxy")
	if err := viper.BindPFlag("server.proxy", cmd.PersistentFlags().Lookup("server.proxy")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("server.pprof", false, "enable pprof endpoint available at /debug/pprof")
	if err := viper.BindPFlag("server.pprof", cmd.PersistentFlags().Lookup("server.pprof")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("server.read-timeout", 30*time.Second, "maximum duration for reading a request")
	if err := viper.BindPFlag("server.read-timeout", cmd.PersistentFlags().Lookup("server.read-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("server.write-timeout", time.Minute, "maximum duration for writing a response")
	if err := viper.BindPFlag("server.write-timeout", cmd.PersistentFlags().Lookup("server.write-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int64("server.max-body-size", 1<<20, "maximum request body size in bytes")
	if err := viper.BindPFlag("server.max-body-size", cmd.PersistentFlags().Lookup("server.max-body-size")); err != nil {
		return err
	}

	return nil
}

func (c *Config) Set() {
	c.Bind = viper.GetString("server.bind")
	c.Static = viper.GetString("server.static")
	c.SSLCert = viper.GetString("server.sslcert")
	c.SSLKey = viper.GetString("server.sslkey")
	c.Proxy = viper.GetBool("server.proxy")
	c.PProf = viper.GetBool("server.pprof")

	c.ReadTimeout = viper.GetDuration("server.read-timeout")
	c.WriteTimeout = viper.GetDuration("server.write-timeout")
	c.MaxBodySize = viper.GetInt64("server.max-body-size")
}
