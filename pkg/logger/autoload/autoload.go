// Package autoload initializes the global logger from LOG_* env vars
// as a side effect of being imported.
package autoload

import (
	configx "github.com/smartinbox/server/pkg/config"
	logx "github.com/smartinbox/server/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
