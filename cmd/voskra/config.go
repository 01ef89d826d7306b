package main

import "github.com/spf13/viper"

// newConfig builds the settings store backing flag defaults. Every knob can
// also be set through the environment (VOSKRA_* variables).
func newConfig() *viper.Viper {
	v := viper.New()

	v.SetDefault("demux.progressive", true)
	v.SetDefault("demux.duration", 0.0)
	v.SetDefault("fetch.http3", false)
	v.SetDefault("fetch.chunk_size", 64*1024)

	v.AutomaticEnv()
	v.BindEnv("demux.progressive", "VOSKRA_PROGRESSIVE")
	v.BindEnv("demux.duration", "VOSKRA_DURATION")
	v.BindEnv("fetch.http3", "VOSKRA_HTTP3")
	v.BindEnv("fetch.chunk_size", "VOSKRA_CHUNK_SIZE")

	return v
}
