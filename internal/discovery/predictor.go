package discovery

import (
	"fmt"
	"strings"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// predictionRule derives a dependent record from a discovered one through
// a deterministic naming rule. One table holds every rule; duplicates in
// (source, target) pairs are a bug.
type predictionRule struct {
	SourceService string
	SourceType    string
	TargetService string
	TargetType    string
	NameTemplate  string
	ARNTemplate   string
	Confidence    float64
}

// predictionRules is the consolidated dependency table. The provider
// creates these log groups implicitly on first use, so listing the source
// service strongly implies their existence.
var predictionRules = []predictionRule{
	{
		SourceService: "LAMBDA", SourceType: "Function",
		TargetService: "LOGS", TargetType: "LogGroup",
		NameTemplate: "/aws/lambda/%s",
		ARNTemplate:  "arn:aws:logs:%s:%s:log-group:%s",
		Confidence:   0.7,
	},
	{
		SourceService: "APIGATEWAY", SourceType: "RestApi",
		TargetService: "LOGS", TargetType: "LogGroup",
		NameTemplate: "API-Gateway-Execution-Logs_%s",
		ARNTemplate:  "arn:aws:logs:%s:%s:log-group:%s",
		Confidence:   0.6,
	},
	{
		SourceService: "EKS", SourceType: "Cluster",
		TargetService: "LOGS", TargetType: "LogGroup",
		NameTemplate: "/aws/eks/%s/cluster",
		ARNTemplate:  "arn:aws:logs:%s:%s:log-group:%s",
		Confidence:   0.6,
	},
	{
		SourceService: "ECS", SourceType: "Cluster",
		TargetService: "LOGS", TargetType: "LogGroup",
		NameTemplate: "/aws/ecs/containerinsights/%s/performance",
		ARNTemplate:  "arn:aws:logs:%s:%s:log-group:%s",
		Confidence:   0.5,
	},
	{
		SourceService: "RDS", SourceType: "DBInstance",
		TargetService: "LOGS", TargetType: "LogGroup",
		NameTemplate: "/aws/rds/instance/%s/error",
		ARNTemplate:  "arn:aws:logs:%s:%s:log-group:%s",
		Confidence:   0.5,
	},
}

// Predict derives dependent records from a discovered set. Predicted
// records carry reduced confidence and the prediction discovery method;
// collisions with real records are resolved later by deduplication.
func Predict(records []models.Resource) []models.Resource {
	var predicted []models.Resource
	for _, rule := range predictionRules {
		for i := range records {
			source := &records[i]
			if !strings.EqualFold(source.Service, rule.SourceService) {
				continue
			}
			if rule.SourceType != "" && source.Type != rule.SourceType {
				continue
			}
			predicted = append(predicted, derive(source, rule))
		}
	}
	return predicted
}

func derive(source *models.Resource, rule predictionRule) models.Resource {
	id := fmt.Sprintf(rule.NameTemplate, source.ResourceID)
	record := models.Resource{
		ResourceID:      id,
		ARN:             fmt.Sprintf(rule.ARNTemplate, source.Region, source.AccountID, id),
		Service:         rule.TargetService,
		Type:            rule.TargetType,
		Region:          source.Region,
		AccountID:       source.AccountID,
		Name:            id,
		Tags:            map[string]string{},
		ParentResource:  source.Key(),
		Confidence:      rule.Confidence,
		DiscoveryMethod: models.DiscoveryMethodPrediction,
	}
	record.Normalize()
	return record
}
