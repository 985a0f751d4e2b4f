package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

func iamOperations() []Operation {
	return []Operation{
		{
			Name: "ListRoles",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "IAM", models.GlobalRegion, func() *iam.Client {
					return iam.NewFromConfig(d.Cfg, func(o *iam.Options) { o.Region = models.GlobalRegion })
				})
				paginator := iam.NewListRolesPaginator(client, &iam.ListRolesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, role := range out.Roles {
						items = append(items, rawItem(role))
					}
				}
				return items, nil
			},
		},
		{
			Name: "ListUsers",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "IAM", models.GlobalRegion, func() *iam.Client {
					return iam.NewFromConfig(d.Cfg, func(o *iam.Options) { o.Region = models.GlobalRegion })
				})
				paginator := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, user := range out.Users {
						items = append(items, rawItem(user))
					}
				}
				return items, nil
			},
		},
	}
}

func kmsOperations() []Operation {
	return []Operation{
		{
			Name: "ListKeys",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "KMS", region, func() *kms.Client {
					return kms.NewFromConfig(d.Cfg, func(o *kms.Options) { o.Region = region })
				})
				paginator := kms.NewListKeysPaginator(client, &kms.ListKeysInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, key := range out.Keys {
						items = append(items, rawItem(key))
					}
				}
				return items, nil
			},
		},
		{
			Name: "ListAliases",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "KMS", region, func() *kms.Client {
					return kms.NewFromConfig(d.Cfg, func(o *kms.Options) { o.Region = region })
				})
				paginator := kms.NewListAliasesPaginator(client, &kms.ListAliasesInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, alias := range out.Aliases {
						items = append(items, rawItem(alias))
					}
				}
				return items, nil
			},
		},
	}
}

func secretsmanagerOperations() []Operation {
	return []Operation{
		{
			Name: "ListSecrets",
			Call: func(ctx context.Context, d Deps, region string, pageCap int) ([]map[string]any, error) {
				client := cachedClient(d, "SECRETSMANAGER", region, func() *secretsmanager.Client {
					return secretsmanager.NewFromConfig(d.Cfg, func(o *secretsmanager.Options) { o.Region = region })
				})
				paginator := secretsmanager.NewListSecretsPaginator(client, &secretsmanager.ListSecretsInput{})
				var items []map[string]any
				for pages := 0; paginator.HasMorePages() && pages < pageCap; pages++ {
					out, err := paginator.NextPage(ctx)
					if err != nil {
						return nil, err
					}
					for _, secret := range out.SecretList {
						items = append(items, rawItem(secret))
					}
				}
				return items, nil
			},
		},
	}
}
