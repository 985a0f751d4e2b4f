package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

func s3Operations() []Operation {
	return []Operation{
		{
			Name: "ListBuckets",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "S3", region, func() *s3.Client {
					return s3.NewFromConfig(d.Cfg, func(o *s3.Options) { o.Region = region })
				})
				out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
				if err != nil {
					return nil, err
				}
				items := make([]map[string]any, 0, len(out.Buckets))
				for _, bucket := range out.Buckets {
					items = append(items, rawItem(bucket))
				}
				return items, nil
			},
		},
	}
}

// BucketRegion resolves the home region of a bucket. GetBucketLocation
// reports an empty constraint for us-east-1 and "EU" for the legacy
// eu-west-1 alias.
func BucketRegion(ctx context.Context, d Deps, bucket string) (string, error) {
	client := cachedClient(d, "S3", models.GlobalRegion, func() *s3.Client {
		return s3.NewFromConfig(d.Cfg, func(o *s3.Options) { o.Region = models.GlobalRegion })
	})
	out, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", err
	}
	switch constraint := string(out.LocationConstraint); constraint {
	case "":
		return "us-east-1", nil
	case "EU":
		return "eu-west-1", nil
	default:
		return constraint, nil
	}
}

func rdsOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeDBInstances",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "RDS", region, func() *rds.Client {
					return rds.NewFromConfig(d.Cfg, func(o *rds.Options) { o.Region = region })
				})
				paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, instance := range out.DBInstances {
						items = append(items, rawItem(instance))
					}
				}
				return items, nil
			},
		},
		{
			Name: "DescribeDBClusters",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "RDS", region, func() *rds.Client {
					return rds.NewFromConfig(d.Cfg, func(o *rds.Options) { o.Region = region })
				})
				paginator := rds.NewDescribeDBClustersPaginator(client, &rds.DescribeDBClustersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, cluster := range out.DBClusters {
						items = append(items, rawItem(cluster))
					}
				}
				return items, nil
			},
		},
	}
}

func dynamodbOperations() []Operation {
	return []Operation{
		{
			Name: "ListTables",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "DYNAMODB", region, func() *dynamodb.Client {
					return dynamodb.NewFromConfig(d.Cfg, func(o *dynamodb.Options) { o.Region = region })
				})
				paginator := dynamodb.NewListTablesPaginator(client, &dynamodb.ListTablesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, name := range out.TableNames {
						items = append(items, map[string]any{"TableName": name})
					}
				}
				return items, nil
			},
		},
	}
}

func elasticacheOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeCacheClusters",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "ELASTICACHE", region, func() *elasticache.Client {
					return elasticache.NewFromConfig(d.Cfg, func(o *elasticache.Options) { o.Region = region })
				})
				paginator := elasticache.NewDescribeCacheClustersPaginator(client, &elasticache.DescribeCacheClustersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, cluster := range out.CacheClusters {
						items = append(items, rawItem(cluster))
					}
				}
				return items, nil
			},
		},
	}
}
