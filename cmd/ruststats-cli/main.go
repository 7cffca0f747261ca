package main

import (
	"context"

	"ruststats-backend/cmd/ruststats-cli/commands"
	"ruststats-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "ruststats-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
