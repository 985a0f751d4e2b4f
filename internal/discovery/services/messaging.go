package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func snsOperations() []Operation {
	return []Operation{
		{
			Name: "ListTopics",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "SNS", region, func() *sns.Client {
					return sns.NewFromConfig(d.Cfg, func(o *sns.Options) { o.Region = region })
				})
				paginator := sns.NewListTopicsPaginator(client, &sns.ListTopicsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, topic := range out.Topics {
						items = append(items, rawItem(topic))
					}
				}
				return items, nil
			},
		},
	}
}

func sqsOperations() []Operation {
	return []Operation{
		{
			Name: "ListQueues",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "SQS", region, func() *sqs.Client {
					return sqs.NewFromConfig(d.Cfg, func(o *sqs.Options) { o.Region = region })
				})
				paginator := sqs.NewListQueuesPaginator(client, &sqs.ListQueuesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, url := range out.QueueUrls {
						items = append(items, map[string]any{"QueueUrl": url})
					}
				}
				return items, nil
			},
		},
	}
}

func cloudwatchOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeAlarms",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "CLOUDWATCH", region, func() *cloudwatch.Client {
					return cloudwatch.NewFromConfig(d.Cfg, func(o *cloudwatch.Options) { o.Region = region })
				})
				paginator := cloudwatch.NewDescribeAlarmsPaginator(client, &cloudwatch.DescribeAlarmsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, alarm := range out.MetricAlarms {
						items = append(items, rawItem(alarm))
					}
					for _, alarm := range out.CompositeAlarms {
						items = append(items, rawItem(alarm))
					}
				}
				return items, nil
			},
		},
	}
}

func cloudformationOperations() []Operation {
	return []Operation{
		{
			Name: "DescribeStacks",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "CLOUDFORMATION", region, func() *cloudformation.Client {
					return cloudformation.NewFromConfig(d.Cfg, func(o *cloudformation.Options) { o.Region = region })
				})
				paginator := cloudformation.NewDescribeStacksPaginator(client, &cloudformation.DescribeStacksInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, stack := range out.Stacks {
						items = append(items, rawItem(stack))
					}
				}
				return items, nil
			},
		},
	}
}
