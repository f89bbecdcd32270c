// Command lambda runs the MatchaJP catalog sync as an AWS Lambda function.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/lukman83/matcha-stock/config"
	"github.com/lukman83/matcha-stock/internal/app"
	"github.com/lukman83/matcha-stock/internal/logger"
	"github.com/lukman83/matcha-stock/internal/serverless"
)

func main() {
	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	job := func(ctx context.Context) (any, error) {
		a, err := app.New(cfg, log)
		if err != nil {
			return nil, err
		}
		defer a.Close()
		return a.SyncCatalog(ctx, "matchajp")
	}
	lambda.Start(serverless.Handler("MatchaJP scraper", job, log))
}
