package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
)

// InstanceStore reads journal instances through the type GSI.
type InstanceStore struct {
	client    API
	table     string
	typeIndex string
	logger    *common.Logger
}

func (s *InstanceStore) ListInstances(ctx context.Context, instanceType string) ([]*models.Instance, error) {
	p := ddb.NewQueryPaginator(s.client, &ddb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.typeIndex),
		KeyConditionExpression:    aws.String("#type = :type"),
		ExpressionAttributeNames:  map[string]string{"#type": "type"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":type": &types.AttributeValueMemberS{Value: instanceType}},
	})

	var out []*models.Instance
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s instances: %w", instanceType, mapError(err))
		}
		for _, item := range page.Items {
			var inst models.Instance
			if err := unmarshalMap(item, &inst); err != nil {
				return nil, fmt.Errorf("unmarshal instance: %w", err)
			}
			out = append(out, &inst)
		}
	}
	return out, nil
}
