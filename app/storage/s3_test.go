package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-accounts/app/storage"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	data, _ := io.ReadAll(input.Body)
	f.body = string(data)
	return &manager.UploadOutput{}, nil
}

type fakeDeleter struct {
	keys []string
}

func (f *fakeDeleter) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.keys = append(f.keys, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3ImageStore_Save(t *testing.T) {
	up := &fakeUploader{}
	del := &fakeDeleter{}
	store := storage.NewS3ImageStore("avatars", "https://cdn.example.com/", 1024, up, del)

	p, err := store.Save(context.Background(), "me.webp", strings.NewReader("webp"))
	require.NoError(t, err)

	require.NotNil(t, up.input)
	assert.Equal(t, "avatars", aws.ToString(up.input.Bucket))
	assert.Equal(t, p, aws.ToString(up.input.Key))
	assert.Equal(t, "image/webp", aws.ToString(up.input.ContentType))
	assert.Equal(t, "webp", up.body)
	assert.Equal(t, "https://cdn.example.com/"+p, store.URL(p))

	require.NoError(t, store.Delete(context.Background(), p))
	assert.Equal(t, []string{p}, del.keys)
}

func TestS3ImageStore_SaveErrors(t *testing.T) {
	up := &fakeUploader{}
	store := storage.NewS3ImageStore("avatars", "https://cdn.example.com", 3, up, &fakeDeleter{})

	_, err := store.Save(context.Background(), "me.png", strings.NewReader("toolarge"))
	assert.ErrorIs(t, err, storage.ErrImageTooLarge)
	assert.Nil(t, up.input, "oversized images are never uploaded")

	_, err = store.Save(context.Background(), "me.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImageType)

	up.err = errors.New("access denied")
	_, err = store.Save(context.Background(), "me.png", strings.NewReader("ok"))
	assert.Error(t, err)
}
