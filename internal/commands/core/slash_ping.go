package core

import (
	"fmt"
	"time"

	"github.com/keshon/appcmd/pkg/appcmd"
)

func (c *Core) Ping(ic *appcmd.InteractionContext) error {
	latency := "n/a"
	if c.latency != nil {
		latency = fmt.Sprintf("%dms", c.latency().Milliseconds())
	}
	uptime := time.Since(c.started).Truncate(time.Second)
	return ic.ReplyEmbed(embed("Pong!", fmt.Sprintf("Latency: %s\nUptime: %s", latency, uptime)), true)
}
