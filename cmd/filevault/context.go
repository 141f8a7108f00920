package main

import (
	"strings"
	"sync"

	"filevault/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiAddr resolves the daemon address: the flag wins, then the configured
// bind address.
func (c *commandContext) apiAddr() (string, error) {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.API.Bind, nil
}

func (c *commandContext) client() (*apiClient, error) {
	addr, err := c.apiAddr()
	if err != nil {
		return nil, err
	}
	return newAPIClient(addr), nil
}
