// Package serverless adapts a batch job to an AWS Lambda handler.
package serverless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
)

// Job is one batch run. Its result is returned in the response body.
type Job func(ctx context.Context) (any, error)

type successBody struct {
	Message string `json:"message"`
	Result  any    `json:"result"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Handler wraps job so that every outcome, panics included, becomes a
// response: 200 with {message, result} or 500 with {message, error}. The
// invocation itself never fails.
func Handler(name string, job Job, logger *zap.SugaredLogger) func(context.Context, json.RawMessage) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, _ json.RawMessage) (resp events.APIGatewayProxyResponse, _ error) {
		log := logger
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			log = logger.With("request_id", lc.AwsRequestID)
		}

		defer func() {
			if r := recover(); r != nil {
				log.Errorw(name+" panicked", "panic", r)
				resp = failure(name, fmt.Errorf("panic: %v", r))
			}
		}()

		log.Infow("starting " + name)
		result, err := job(ctx)
		if err != nil {
			log.Errorw(name+" failed", "error", err)
			return failure(name, err), nil
		}
		log.Infow(name + " completed successfully")
		return respond(http.StatusOK, successBody{Message: name + " completed successfully", Result: result}), nil
	}
}

func failure(name string, err error) events.APIGatewayProxyResponse {
	return respond(http.StatusInternalServerError, errorBody{Message: "Error in " + name, Error: err.Error()})
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorBody{Message: "encode response", Error: err.Error()})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}
