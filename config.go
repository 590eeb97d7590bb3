package main

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoClient"
)

type config struct {
	Wethermo struct {
		Host     string `yaml:"host"`
		Timeout  int    `yaml:"timeout"`
		Interval int    `yaml:"interval"`
	} `yaml:"wethermo"`
	Display struct {
		Region string `yaml:"region"`
	} `yaml:"display"`
	Panel struct {
		Addr string `yaml:"addr"`
	} `yaml:"panel"`
	Metrics struct {
		Port string `yaml:"port"`
	} `yaml:"metrics"`
}

func NewDefaultConfig() (c config) {
	c = config{}
	c.Wethermo.Host = wethermoClient.DefaultHost
	c.Wethermo.Timeout = 0
	c.Wethermo.Interval = 30
	c.Display.Region = "mydiv"
	c.Panel.Addr = ":8080"
	c.Metrics.Port = "9123"
	return
}

func (c config) timeout() time.Duration {
	return time.Duration(c.Wethermo.Timeout) * time.Second
}

func (c config) interval() time.Duration {
	return time.Duration(c.Wethermo.Interval) * time.Second
}

func initConfig(v *viper.Viper, configPath string, sugar *zap.SugaredLogger) {
	// set defaults
	d := NewDefaultConfig()
	v.SetDefault("wethermo.host", d.Wethermo.Host)
	v.SetDefault("wethermo.timeout", d.Wethermo.Timeout)
	v.SetDefault("wethermo.interval", d.Wethermo.Interval)
	v.SetDefault("display.region", d.Display.Region)
	v.SetDefault("panel.addr", d.Panel.Addr)
	v.SetDefault("metrics.port", d.Metrics.Port)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	v.SetEnvPrefix("wethermo")
	v.SetConfigType("yaml")
	cfg, err := os.ReadFile(configPath)
	if err != nil {
		sugar.Info("No configuration file found. Using Default config")
	}
	err = v.ReadConfig(bytes.NewBuffer(cfg)) // Find and read the config file
	if err != nil {                          // Handle errors reading the config file
		sugar.Errorf("Error while reading config file: %v. Using Default config", err)
	}
	sugar.Infof("Configuration from %v", v.AllSettings())
}

func loadConfig(v *viper.Viper) (c config) {
	c.Wethermo.Host = v.GetString("wethermo.host")
	c.Wethermo.Timeout = v.GetInt("wethermo.timeout")
	c.Wethermo.Interval = v.GetInt("wethermo.interval")
	c.Display.Region = v.GetString("display.region")
	c.Panel.Addr = v.GetString("panel.addr")
	c.Metrics.Port = v.GetString("metrics.port")
	if c.Wethermo.Interval <= 0 {
		c.Wethermo.Interval = NewDefaultConfig().Wethermo.Interval
	}
	return
}
