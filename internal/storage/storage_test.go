package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "out.png", want: Location{Path: "out.png"}},
		{in: "dir/out.png", want: Location{Path: "dir/out.png"}},
		{in: "s3://bucket/scans/a.png", want: Location{Bucket: "bucket", Key: "scans/a.png"}},
		{in: "s3://bucket", want: Location{Bucket: "bucket"}},
		{in: "s3:///key", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationParts(t *testing.T) {
	loc, err := ParseLocation("s3://b/scans/2024/a.png")
	require.NoError(t, err)
	assert.True(t, loc.IsS3())
	assert.Equal(t, "scans/2024", loc.Dir())
	assert.Equal(t, "a.png", loc.Base())
	assert.Equal(t, "s3://b/scans/2024/a.png", loc.String())

	flat, err := ParseLocation("s3://b/a.png")
	require.NoError(t, err)
	assert.Empty(t, flat.Dir())

	file, err := ParseLocation(filepath.Join("x", "y.png"))
	require.NoError(t, err)
	assert.False(t, file.IsS3())
	assert.Equal(t, "x", file.Dir())
	assert.Equal(t, "y.png", file.Base())
}

func TestFileSink_Put(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(filepath.Join(dir, "nested"))

	loc, err := sink.Put(context.Background(), "sub/page.png", "image/png", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "sub", "page.png"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestFileSink_PutReturnsAbsolutePath(t *testing.T) {
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)

	loc, err := NewFileSink("").Put(context.Background(), "page_scan.png", "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(loc), loc)
	assert.Equal(t, filepath.Join(cwd, "page_scan.png"), loc)

	loc, err = NewFileSink("out").Put(context.Background(), "a.png", "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "out", "a.png"), loc)
}

func TestFileSink_RejectsEscapes(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	for _, name := range []string{"", "../x.png", "/etc/x.png"} {
		_, err := sink.Put(context.Background(), name, "", bytes.NewReader(nil))
		assert.Error(t, err, name)
	}
}

func TestFileSink_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSink(t.TempDir()).Put(ctx, "a.png", "", bytes.NewReader(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeUploader struct {
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3manager.UploadOutput{Location: "https://example/" + *in.Key}, nil
}

func TestS3Sink_Put(t *testing.T) {
	up := &fakeUploader{}
	sink := NewS3SinkWithUploader(S3Config{Bucket: "docs", Prefix: "/scans/"}, up)

	loc, err := sink.Put(context.Background(), "page.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/scans/page.jpg", loc)
	assert.Equal(t, "docs", aws.StringValue(up.input.Bucket))
	assert.Equal(t, "scans/page.jpg", aws.StringValue(up.input.Key))
	assert.Equal(t, "image/jpeg", aws.StringValue(up.input.ContentType))
	assert.Equal(t, "jpeg", string(up.body))
}

func TestS3Sink_Errors(t *testing.T) {
	up := &fakeUploader{err: errors.New("denied")}
	sink := NewS3SinkWithUploader(S3Config{Bucket: "docs"}, up)
	assert.Equal(t, "a.png", sink.Key("/a.png"))

	_, err := sink.Put(context.Background(), "a.png", "", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://docs/a.png")

	_, err = sink.Put(context.Background(), "", "", bytes.NewReader(nil))
	assert.Error(t, err)

	_, err = NewS3Sink(S3Config{})
	assert.Error(t, err)
}

func TestForLocation_File(t *testing.T) {
	dir := t.TempDir()
	sink, name, err := ForLocation(Location{Path: filepath.Join(dir, "out.png")}, "")
	require.NoError(t, err)
	assert.Equal(t, "out.png", name)

	loc, err := sink.Put(context.Background(), name, "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.png"), loc)
}
