// Package credentials resolves AWS sessions for configured accounts.
// Resolution follows a fixed priority: named profile, direct access keys,
// explicit role assumption, then the conventional cross-account role on
// the target account.
package credentials

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
)

// DefaultCrossAccountRole is the conventional role assumed on target
// accounts when no explicit credentials are configured.
const DefaultCrossAccountRole = "OrganizationAccountAccessRole"

// AccountConfig describes one account and how to obtain a session for it
type AccountConfig struct {
	AccountID       string `yaml:"account_id" json:"account_id"`
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	Profile         string `yaml:"profile,omitempty" json:"profile,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"-"`
	SessionToken    string `yaml:"session_token,omitempty" json:"-"`
	RoleARN         string `yaml:"role_arn,omitempty" json:"role_arn,omitempty"`
	ExternalID      string `yaml:"external_id,omitempty" json:"external_id,omitempty"`
}

// DisplayName returns the human label for the account
func (a AccountConfig) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.AccountID
}

// Resolver builds signed sessions for accounts
type Resolver struct {
	defaultRegion string
}

// NewResolver creates a session resolver issuing sessions homed in the
// given default region.
func NewResolver(defaultRegion string) *Resolver {
	if defaultRegion == "" {
		defaultRegion = "us-east-1"
	}
	return &Resolver{defaultRegion: defaultRegion}
}

// Resolve establishes a session for the account. Failures surface as
// credential errors attributed to the account.
func (r *Resolver) Resolve(ctx context.Context, account AccountConfig) (aws.Config, error) {
	cfg, err := r.resolve(ctx, account)
	if err != nil {
		return aws.Config{}, apperrors.Wrap(apperrors.KindCredential,
			fmt.Sprintf("failed to establish session for account %s", account.DisplayName()), err).
			WithAccount(account.AccountID)
	}
	return cfg, nil
}

func (r *Resolver) resolve(ctx context.Context, account AccountConfig) (aws.Config, error) {
	switch {
	case account.Profile != "":
		return awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithSharedConfigProfile(account.Profile),
			awsconfig.WithRegion(r.defaultRegion),
		)

	case account.AccessKeyID != "":
		provider := awscreds.NewStaticCredentialsProvider(
			account.AccessKeyID, account.SecretAccessKey, account.SessionToken)
		return awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithCredentialsProvider(provider),
			awsconfig.WithRegion(r.defaultRegion),
		)

	case account.RoleARN != "":
		return r.assumeRole(ctx, account.RoleARN, account.ExternalID)

	default:
		// Conventional cross-account role on the target account.
		roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", account.AccountID, DefaultCrossAccountRole)
		return r.assumeRole(ctx, roleARN, account.ExternalID)
	}
}

func (r *Resolver) assumeRole(ctx context.Context, roleARN, externalID string) (aws.Config, error) {
	base, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(r.defaultRegion))
	if err != nil {
		return aws.Config{}, err
	}
	stsClient := sts.NewFromConfig(base)
	provider := stscreds.NewAssumeRoleProvider(stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "inventag-discovery"
		if externalID != "" {
			o.ExternalID = aws.String(externalID)
		}
	})
	base.Credentials = aws.NewCredentialsCache(provider)
	return base, nil
}

// CallerIdentity returns the account id and ARN of the session principal
func CallerIdentity(ctx context.Context, cfg aws.Config) (accountID, arn string, err error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", err
	}
	return aws.ToString(out.Account), aws.ToString(out.Arn), nil
}
