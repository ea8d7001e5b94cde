package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
)

// DynamoStore keeps bookings keyed by booking_reference, with a GSI on
// payment_id, and enforces payment uniqueness through a separate claims
// table written in the same transaction as the booking.
type DynamoStore struct {
	client       aws.DynamoDBAPI
	tableName    string
	claimsTable  string
	paymentIndex string
	nowFunc      func() time.Time
}

func NewDynamoStore(client aws.DynamoDBAPI, tableName, claimsTable, paymentIndex string) *DynamoStore {
	return &DynamoStore{
		client:       client,
		tableName:    tableName,
		claimsTable:  claimsTable,
		paymentIndex: paymentIndex,
		nowFunc:      time.Now,
	}
}

// InsertIfAbsent atomically creates:
//   - a claim in claimsTable guarded by attribute_not_exists(payment_id)
//   - the booking in the bookings table guarded by attribute_not_exists(booking_reference)
//
// When the claim already exists the stored booking is re-read and returned
// with created=false.
func (s *DynamoStore) InsertIfAbsent(ctx context.Context, b PaidBooking) (*PaidBooking, bool, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.nowFunc()
	}

	claimMap, err := attributevalue.MarshalMap(PaymentClaim{
		PaymentID:        b.PaymentID,
		BookingReference: b.BookingReference,
		CreatedAt:        b.CreatedAt,
	})
	if err != nil {
		return nil, false, fmt.Errorf("marshal payment claim: %w", err)
	}
	bookingMap, err := attributevalue.MarshalMap(b)
	if err != nil {
		return nil, false, fmt.Errorf("marshal booking: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.claimsTable,
					Item:                claimMap,
					ConditionExpression: awsString("attribute_not_exists(payment_id)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                bookingMap,
					ConditionExpression: awsString("attribute_not_exists(booking_reference)"),
				},
			},
		},
	})
	if err == nil {
		return &b, true, nil
	}

	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false, fmt.Errorf("transact write%s: %w", apiErrorCode(err), err)
	}
	if !claimConflict(tce) {
		return nil, false, errReferenceCollision(b.BookingReference)
	}

	existing, err := s.FindByPaymentID(ctx, b.PaymentID)
	if err != nil {
		return nil, false, fmt.Errorf("re-read after conflict: %w", err)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("payment %s is claimed but has no booking row", b.PaymentID)
	}
	return existing, false, nil
}

// claimConflict reports whether the first transact item (the claim) is the
// one that failed its condition. An exception without reasons is treated as
// a claim conflict.
func claimConflict(tce *types.TransactionCanceledException) bool {
	if len(tce.CancellationReasons) == 0 {
		return true
	}
	code := tce.CancellationReasons[0].Code
	return code != nil && *code == "ConditionalCheckFailed"
}

// FindByPaymentID follows the claim when present. Rows written before the
// claims table existed are found through the payment_id index.
func (s *DynamoStore) FindByPaymentID(ctx context.Context, paymentID string) (*PaidBooking, error) {
	claim, err := s.getClaim(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		b, err := s.FindByReference(ctx, claim.BookingReference)
		if err != nil || b != nil {
			return b, err
		}
	}

	rows, err := s.ListByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindByReference returns (nil, nil) if not found.
func (s *DynamoStore) FindByReference(ctx context.Context, reference string) (*PaidBooking, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            map[string]types.AttributeValue{"booking_reference": &types.AttributeValueMemberS{Value: reference}},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get booking%s: %w", apiErrorCode(err), err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var b PaidBooking
	if err := attributevalue.UnmarshalMap(out.Item, &b); err != nil {
		return nil, fmt.Errorf("unmarshal booking: %w", err)
	}
	return &b, nil
}

func (s *DynamoStore) ListByPaymentID(ctx context.Context, paymentID string) ([]PaidBooking, error) {
	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.paymentIndex,
		KeyConditionExpression: awsString("payment_id = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: paymentID},
		},
	})

	var rows []PaidBooking
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query payment index%s: %w", apiErrorCode(err), err)
		}
		var batch []PaidBooking
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal bookings: %w", err)
		}
		rows = append(rows, batch...)
	}
	sortByCreation(rows)
	return rows, nil
}

// ListAll scans the full bookings table. Only the sentinel calls it.
func (s *DynamoStore) ListAll(ctx context.Context) ([]PaidBooking, error) {
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{TableName: &s.tableName})

	var rows []PaidBooking
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan bookings%s: %w", apiErrorCode(err), err)
		}
		var batch []PaidBooking
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal bookings: %w", err)
		}
		rows = append(rows, batch...)
	}
	sortByCreation(rows)
	return rows, nil
}

// Delete removes one booking row. If the payment claim pointed at it, the
// claim is moved to a remaining row for the same payment, or dropped.
func (s *DynamoStore) Delete(ctx context.Context, reference string) error {
	existing, err := s.FindByReference(ctx, reference)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	_, err = s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 map[string]types.AttributeValue{"booking_reference": &types.AttributeValueMemberS{Value: reference}},
		ConditionExpression: awsString("attribute_exists(booking_reference)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("delete booking: %w", err)
	}

	claim, err := s.getClaim(ctx, existing.PaymentID)
	if err != nil {
		return err
	}
	if claim == nil || claim.BookingReference != reference {
		return nil
	}

	rows, err := s.ListByPaymentID(ctx, existing.PaymentID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.BookingReference == reference {
			continue
		}
		return s.putClaim(ctx, PaymentClaim{PaymentID: r.PaymentID, BookingReference: r.BookingReference, CreatedAt: r.CreatedAt})
	}

	_, err = s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.claimsTable,
		Key:       map[string]types.AttributeValue{"payment_id": &types.AttributeValueMemberS{Value: existing.PaymentID}},
	})
	if err != nil {
		return fmt.Errorf("delete payment claim: %w", err)
	}
	return nil
}

func (s *DynamoStore) getClaim(ctx context.Context, paymentID string) (*PaymentClaim, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.claimsTable,
		Key:            map[string]types.AttributeValue{"payment_id": &types.AttributeValueMemberS{Value: paymentID}},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get payment claim: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c PaymentClaim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal payment claim: %w", err)
	}
	return &c, nil
}

func (s *DynamoStore) putClaim(ctx context.Context, c PaymentClaim) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal payment claim: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.claimsTable, Item: item}); err != nil {
		return fmt.Errorf("put payment claim: %w", err)
	}
	return nil
}

// apiErrorCode formats the service error code, e.g. " (ProvisionedThroughputExceededException)".
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return " (" + apiErr.ErrorCode() + ")"
	}
	return ""
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
