// Package services holds the typed AWS listing operations the discovery
// engine drives. Every operation is a read-only enumeration returning raw
// payload maps; field extraction and normalization happen upstream in the
// discovery package so listers stay mechanical.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Deps carries the per-account session and the shared client cache into
// operation calls.
type Deps struct {
	Cfg     aws.Config
	Clients *ClientCache
}

// Operation is one listing call for a service. Call returns the raw items
// of up to pageCap pages; it must only issue read-only API calls.
type Operation struct {
	Name string
	Call func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error)
}

// ClientCache memoizes SDK clients per (service, region). Clients are
// concurrency-safe and cheap to reuse; recreating them per unit wastes
// connection pools.
type ClientCache struct {
	mu      sync.Mutex
	clients map[string]any
}

// NewClientCache creates an empty client cache
func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[string]any)}
}

func (c *ClientCache) getOrCreate(key string, build func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client
	}
	client := build()
	c.clients[key] = client
	return client
}

// cachedClient returns the memoized client for (service, region), building
// it on first use.
func cachedClient[T any](d Deps, service, region string, build func() T) T {
	key := fmt.Sprintf("%s:%s", service, region)
	return d.Clients.getOrCreate(key, func() any { return build() }).(T)
}

// rawItem converts an SDK shape to a generic payload map through a JSON
// round trip. Timestamps come out as RFC 3339 strings and pointer fields
// collapse to their values or disappear.
func rawItem(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return map[string]any{}
	}
	return payload
}

// Catalog returns the full operation table keyed by upper-case service
// name. Operations are ordered by priority; the engine stops at the first
// one returning a non-empty result.
func Catalog() map[string][]Operation {
	return map[string][]Operation{
		"EC2":            ec2Operations(),
		"S3":             s3Operations(),
		"RDS":            rdsOperations(),
		"LAMBDA":         lambdaOperations(),
		"IAM":            iamOperations(),
		"CLOUDFORMATION": cloudformationOperations(),
		"DYNAMODB":       dynamodbOperations(),
		"SNS":            snsOperations(),
		"SQS":            sqsOperations(),
		"ECS":            ecsOperations(),
		"EKS":            eksOperations(),
		"ELASTICACHE":    elasticacheOperations(),
		"ELBV2":          elbv2Operations(),
		"KMS":            kmsOperations(),
		"ROUTE53":        route53Operations(),
		"CLOUDFRONT":     cloudfrontOperations(),
		"APIGATEWAY":     apigatewayOperations(),
		"SECRETSMANAGER": secretsmanagerOperations(),
		"AUTOSCALING":    autoscalingOperations(),
		"CLOUDWATCH":     cloudwatchOperations(),
		"ECR":            ecrOperations(),
	}
}
