package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

func elbv2Operations() []Operation {
	return []Operation{
		{
			Name: "DescribeLoadBalancers",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "ELBV2", region, func() *elasticloadbalancingv2.Client {
					return elasticloadbalancingv2.NewFromConfig(d.Cfg, func(o *elasticloadbalancingv2.Options) { o.Region = region })
				})
				paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, lb := range out.LoadBalancers {
						items = append(items, rawItem(lb))
					}
				}
				return items, nil
			},
		},
	}
}

func route53Operations() []Operation {
	return []Operation{
		{
			Name: "ListHostedZones",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "ROUTE53", models.GlobalRegion, func() *route53.Client {
					return route53.NewFromConfig(d.Cfg, func(o *route53.Options) { o.Region = models.GlobalRegion })
				})
				paginator := route53.NewListHostedZonesPaginator(client, &route53.ListHostedZonesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, zone := range out.HostedZones {
						items = append(items, rawItem(zone))
					}
				}
				return items, nil
			},
		},
	}
}

func cloudfrontOperations() []Operation {
	return []Operation{
		{
			Name: "ListDistributions",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "CLOUDFRONT", models.GlobalRegion, func() *cloudfront.Client {
					return cloudfront.NewFromConfig(d.Cfg, func(o *cloudfront.Options) { o.Region = models.GlobalRegion })
				})
				paginator := cloudfront.NewListDistributionsPaginator(client, &cloudfront.ListDistributionsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					if out.DistributionList == nil {
						continue
					}
					for _, dist := range out.DistributionList.Items {
						items = append(items, rawItem(dist))
					}
				}
				return items, nil
			},
		},
	}
}

func apigatewayOperations() []Operation {
	return []Operation{
		{
			Name: "GetRestApis",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "APIGATEWAY", region, func() *apigateway.Client {
					return apigateway.NewFromConfig(d.Cfg, func(o *apigateway.Options) { o.Region = region })
				})
				paginator := apigateway.NewGetRestApisPaginator(client, &apigateway.GetRestApisInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, api := range out.Items {
						items = append(items, rawItem(api))
					}
				}
				return items, nil
			},
		},
	}
}
