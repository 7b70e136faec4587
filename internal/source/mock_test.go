package source

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockObjectClient implements ObjectAPI for testing.
type mockObjectClient struct {
	objects     map[string][]byte // bucket/key -> body
	contentType map[string]string
	getErr      error
	putErr      error
}

func newMockObjectClient() *mockObjectClient {
	return &mockObjectClient{
		objects:     make(map[string][]byte),
		contentType: make(map[string]string),
	}
}

func (m *mockObjectClient) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	body, ok := m.objects[aws.ToString(input.Bucket)+"/"+aws.ToString(input.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey: the specified key does not exist")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (m *mockObjectClient) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	path := aws.ToString(input.Bucket) + "/" + aws.ToString(input.Key)
	m.objects[path] = body
	m.contentType[path] = aws.ToString(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}
