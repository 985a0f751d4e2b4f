package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ProbeRegion issues a cheap call against a region to verify the session
// can reach it. Opted-out or fenced regions fail here before any worker is
// scheduled against them.
func ProbeRegion(ctx context.Context, d Deps, region string) error {
	client := cachedClient(d, "EC2", region, func() *ec2.Client {
		return ec2.NewFromConfig(d.Cfg, func(o *ec2.Options) { o.Region = region })
	})
	_, err := client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{})
	return err
}
