// Package dynamo stores parking reports in a DynamoDB table keyed by
// pk = "<cell>#<side>" and sk = creation timestamp, with expiresAt as the
// table's TTL attribute (epoch seconds).
//
// DynamoDB cannot range-scan on a partition-key prefix, so a cell query is
// expanded into one Query per side. Per-user lookups go through a global
// secondary index on (user_id, sk).
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vapi/internal/domain/entities"
)

// DefaultUserIndex is the name of the GSI on (user_id, sk).
const DefaultUserIndex = "UserReportsIndex"

// Client is the subset of *dynamodb.Client the store uses.
//
// Go Learning Note — Narrow Interfaces for SDK Clients:
// The AWS client has hundreds of methods. Declaring only the two we call
// lets tests pass a small fake, and *dynamodb.Client still satisfies the
// interface implicitly. dynamodb.QueryAPIClient is the SDK's own one-method
// interface used by its paginators.
type Client interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type ReportStore struct {
	client    Client
	table     string
	userIndex string
}

func NewReportStore(client Client, table string) *ReportStore {
	return &ReportStore{client: client, table: table, userIndex: DefaultUserIndex}
}

// Put writes the report. The condition makes a second write with the same
// key fail instead of silently overwriting.
func (s *ReportStore) Put(ctx context.Context, r *entities.ParkingReport) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                marshalReport(r),
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		return fmt.Errorf("put report %s: %w", r.ID(), err)
	}
	return nil
}

// QueryByPrefix accepts either a full partition key or a cell. A cell is
// expanded to the partitions of its four sides.
func (s *ReportStore) QueryByPrefix(ctx context.Context, prefix string) ([]*entities.ParkingReport, error) {
	keys := []string{prefix}
	if !strings.Contains(prefix, "#") {
		keys = entities.CellPartitionKeys(prefix)
	}

	var out []*entities.ParkingReport
	for _, pk := range keys {
		reports, err := s.query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ScanIndexForward: aws.Bool(true),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, reports...)
	}
	return out, nil
}

func (s *ReportStore) QueryByUserSince(ctx context.Context, userID string, since time.Time) ([]*entities.ParkingReport, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.userIndex),
		KeyConditionExpression: aws.String("user_id = :uid AND sk > :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":   &types.AttributeValueMemberS{Value: userID},
			":since": &types.AttributeValueMemberS{Value: entities.FormatSortKey(since)},
		},
	})
}

func (s *ReportStore) query(ctx context.Context, input *dynamodb.QueryInput) ([]*entities.ParkingReport, error) {
	var out []*entities.ParkingReport

	p := dynamodb.NewQueryPaginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query reports: %w", err)
		}
		for _, item := range page.Items {
			r, err := unmarshalReport(item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func marshalReport(r *entities.ParkingReport) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"pk":           &types.AttributeValueMemberS{Value: r.PartitionKey()},
		"sk":           &types.AttributeValueMemberS{Value: r.SortKey()},
		"geoHash6":     &types.AttributeValueMemberS{Value: r.Cell},
		"side":         &types.AttributeValueMemberS{Value: string(r.Side)},
		"lat":          number(r.Lat),
		"lng":          number(r.Lng),
		"count_bucket": &types.AttributeValueMemberS{Value: string(r.CountBucket)},
		"confidence":   number(r.Confidence),
		"expiresAt":    &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ExpiresAt.Unix(), 10)},
		"source":       &types.AttributeValueMemberS{Value: string(r.Source)},
	}
	// Anonymous reports leave user_id out so they stay out of the sparse
	// user index.
	if r.UserID != "" {
		item["user_id"] = &types.AttributeValueMemberS{Value: r.UserID}
	}
	return item
}

func unmarshalReport(item map[string]types.AttributeValue) (*entities.ParkingReport, error) {
	var (
		r   entities.ParkingReport
		err error
	)

	sk := stringAttr(item, "sk")
	if r.CreatedAt, err = entities.ParseSortKey(sk); err != nil {
		return nil, fmt.Errorf("decode report sort key %q: %w", sk, err)
	}

	r.Cell = stringAttr(item, "geoHash6")
	r.Side = entities.Side(stringAttr(item, "side"))
	r.CountBucket = entities.CountBucket(stringAttr(item, "count_bucket"))
	r.Source = entities.ReportSource(stringAttr(item, "source"))
	r.UserID = stringAttr(item, "user_id")

	var expires float64
	for name, dst := range map[string]*float64{
		"lat":        &r.Lat,
		"lng":        &r.Lng,
		"confidence": &r.Confidence,
		"expiresAt":  &expires,
	} {
		if *dst, err = numberAttr(item, name); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", sk, err)
		}
	}
	// expiresAt only carries whole seconds for the table TTL. When it agrees
	// with the sort key, rebuild the exact instant from the creation time.
	r.ExpiresAt = time.Unix(int64(expires), 0).UTC()
	if exact := r.CreatedAt.Add(entities.ReportTTL); exact.Unix() == int64(expires) {
		r.ExpiresAt = exact
	}

	return &r, nil
}

func number(v float64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

var errMissingAttr = errors.New("missing attribute")

func numberAttr(item map[string]types.AttributeValue, name string) (float64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, errMissingAttr)
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}
