package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmPrefix marks a token value that names an SSM parameter instead of a
// literal token, e.g. "ssm:/ultraviolet/api-token".
const ssmPrefix = "ssm:"

// ResolveToken turns a configured token value into a usable bearer token.
// Literal values pass through; "ssm:" values are fetched (decrypted) from
// Parameter Store so token material never has to live in config files.
func ResolveToken(ctx context.Context, raw string, awsConfig aws.Config) (string, error) {
	if !strings.HasPrefix(raw, ssmPrefix) {
		return raw, nil
	}

	name := strings.TrimPrefix(raw, ssmPrefix)
	client := ssm.NewFromConfig(awsConfig)
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("fetching token from SSM parameter %s: %w", name, err)
	}
	return aws.ToString(out.Parameter.Value), nil
}
