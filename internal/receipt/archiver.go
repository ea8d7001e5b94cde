package receipt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
)

// ObjectPutter is the subset of *minio.Client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Archiver struct {
	client ObjectPutter
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return client, nil
}

func NewArchiver(client ObjectPutter, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// ObjectName is receipts/YYYY/MM/DD/<reference>.txt, dated by booking creation.
func ObjectName(b bookings.PaidBooking) string {
	return fmt.Sprintf("receipts/%s/%s.txt", b.CreatedAt.UTC().Format("2006/01/02"), b.BookingReference)
}

// Archive uploads the rendered receipt and returns its object name.
// Uploading the same booking twice overwrites the same object.
func (a *Archiver) Archive(ctx context.Context, b bookings.PaidBooking) (string, error) {
	body := Render(b)
	name := ObjectName(b)
	_, err := a.client.PutObject(ctx, a.bucket, name, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"payment-id":     b.PaymentID,
			"transaction-id": b.TransactionID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put receipt %s in bucket %s: %w", name, a.bucket, err)
	}
	return name, nil
}
