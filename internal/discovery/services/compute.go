package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

func ec2Operations() []Operation {
	return []Operation{
		{
			Name: "DescribeInstances",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "EC2", region, func() *ec2.Client {
					return ec2.NewFromConfig(d.Cfg, func(o *ec2.Options) { o.Region = region })
				})
				paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, reservation := range out.Reservations {
						for _, instance := range reservation.Instances {
							items = append(items, rawItem(instance))
						}
					}
				}
				return items, nil
			},
		},
		{
			Name: "DescribeVpcs",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "EC2", region, func() *ec2.Client {
					return ec2.NewFromConfig(d.Cfg, func(o *ec2.Options) { o.Region = region })
				})
				paginator := ec2.NewDescribeVpcsPaginator(client, &ec2.DescribeVpcsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, vpc := range out.Vpcs {
						items = append(items, rawItem(vpc))
					}
				}
				return items, nil
			},
		},
	}
}

func lambdaOperations() []Operation {
	return []Operation{
		{
			Name: "ListFunctions",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "LAMBDA", region, func() *lambda.Client {
					return lambda.NewFromConfig(d.Cfg, func(o *lambda.Options) { o.Region = region })
				})
				paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, fn := range out.Functions {
						items = append(items, rawItem(fn))
					}
				}
				return items, nil
			},
		},
	}
}

func autoscalingOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeAutoScalingGroups",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "AUTOSCALING", region, func() *autoscaling.Client {
					return autoscaling.NewFromConfig(d.Cfg, func(o *autoscaling.Options) { o.Region = region })
				})
				paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(client, &autoscaling.DescribeAutoScalingGroupsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, group := range out.AutoScalingGroups {
						items = append(items, rawItem(group))
					}
				}
				return items, nil
			},
		},
	}
}

func ecsOperations() []Operation {
	return []Operation{
		{
			Name: "ListClusters",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "ECS", region, func() *ecs.Client {
					return ecs.NewFromConfig(d.Cfg, func(o *ecs.Options) { o.Region = region })
				})
				paginator := ecs.NewListClustersPaginator(client, &ecs.ListClustersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					if len(out.ClusterArns) == 0 {
						continue
					}
					// ListClusters returns bare ARNs; DescribeClusters fills
					// in names, status, and tags.
					described, err := client.DescribeClusters(ctx, &ecs.DescribeClustersInput{
						Clusters: out.ClusterArns,
					})
					if err != nil {
						return nil, err
					}
					for _, cluster := range described.Clusters {
						items = append(items, rawItem(cluster))
					}
				}
				return items, nil
			},
		},
	}
}

func eksOperations() []Operation {
	return []Operation{
		{
			Name: "ListClusters",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "EKS", region, func() *eks.Client {
					return eks.NewFromConfig(d.Cfg, func(o *eks.Options) { o.Region = region })
				})
				paginator := eks.NewListClustersPaginator(client, &eks.ListClustersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, name := range out.Clusters {
						items = append(items, map[string]any{"Name": name})
					}
				}
				return items, nil
			},
		},
	}
}

func ecrOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeRepositories",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "ECR", region, func() *ecr.Client {
					return ecr.NewFromConfig(d.Cfg, func(o *ecr.Options) { o.Region = region })
				})
				paginator := ecr.NewDescribeRepositoriesPaginator(client, &ecr.DescribeRepositoriesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, repo := range out.Repositories {
						items = append(items, rawItem(repo))
					}
				}
				return items, nil
			},
		},
	}
}
