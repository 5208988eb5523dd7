package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

var (
	S3Session       *session.Session
	S3Bucket        string
	S3Region        string
	CloudFrontURL   string
	UseLocalStorage bool = true // Toggle: true = local, false = S3
)

func InitS3(bucket, region, cloudfrontURL string) error {
	S3Bucket = bucket
	S3Region = region
	CloudFrontURL = cloudfrontURL

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return err
	}

	S3Session = sess
	UseLocalStorage = false
	return nil
}

// UploadFile stores an upload under the tenant's own prefix so objects of
// different tenants never share a key space.
func UploadFile(file *multipart.FileHeader, tenantID uint) (string, error) {
	if UseLocalStorage {
		return UploadToLocal(file, tenantID)
	}
	return UploadToS3(file, tenantID)
}

func UploadToS3(file *multipart.FileHeader, tenantID uint) (string, error) {
	if S3Session == nil {
		return "", fmt.Errorf("S3 not initialized, using local storage instead")
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := objectKey(file.Filename, tenantID)

	svc := s3.New(S3Session)

	_, err = svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(S3Bucket),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(file.Header.Get("Content-Type")),
		ACL:         aws.String("public-read"),
	})

	if err != nil {
		return "", err
	}

	if CloudFrontURL != "" {
		return CloudFrontURL + "/" + key, nil
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		S3Bucket, S3Region, key), nil
}

func objectKey(filename string, tenantID uint) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("tenant-%d/%s/%s%s",
		tenantID,
		time.Now().Format("2006/01"),
		uuid.New().String(),
		ext,
	)
}

func DeleteFile(url string, tenantID uint) error {
	if UseLocalStorage {
		return DeleteFromLocal(url)
	}
	return DeleteFromS3(url, tenantID)
}

func DeleteFromS3(url string, tenantID uint) error {
	if S3Session == nil {
		return fmt.Errorf("S3 not initialized")
	}

	key := extractKeyFromURL(url)
	if key == "" {
		return fmt.Errorf("could not derive object key from %q", url)
	}
	if !strings.HasPrefix(key, fmt.Sprintf("tenant-%d/", tenantID)) {
		return fmt.Errorf("object key does not belong to tenant %d", tenantID)
	}

	svc := s3.New(S3Session)

	_, err := svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(S3Bucket),
		Key:    aws.String(key),
	})

	return err
}

func extractKeyFromURL(url string) string {
	if CloudFrontURL != "" && strings.HasPrefix(url, CloudFrontURL+"/") {
		return strings.TrimPrefix(url, CloudFrontURL+"/")
	}
	origin := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", S3Bucket, S3Region)
	if strings.HasPrefix(url, origin) {
		return strings.TrimPrefix(url, origin)
	}
	return ""
}

func GetStorageMode() string {
	if UseLocalStorage {
		return "local"
	}
	return "s3"
}

func SetStorageMode(useLocal bool) {
	UseLocalStorage = useLocal
}
