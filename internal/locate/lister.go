package locate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectLister is the subset of the S3 client the locator needs, so tests
// can substitute a fake without standing up real object storage.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Request describes one table's artifact discovery.
type Request struct {
	Mode       Mode
	Bucket     string
	Prefix     string
	Database   string
	Schema     string
	Table      string
	StartDate  *time.Time
	StopDate   *time.Time
	AbsoluteKey string
}

// List discovers the artifact set for one table per Request.Mode. For
// ModeAbsolutePath it returns a single-element slice with no API call.
func List(ctx context.Context, client ObjectLister, req Request) ([]Artifact, error) {
	if req.Mode == ModeAbsolutePath {
		if req.AbsoluteKey == "" {
			return nil, fmt.Errorf("locate: absolute path mode requires a key")
		}
		return []Artifact{{Key: req.AbsoluteKey, Kind: classify(req.AbsoluteKey)}}, nil
	}

	prefix := tablePrefix(req)

	var out []Artifact
	var token *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(req.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		}
		if token == nil && req.Mode == ModeDateAware && req.StartDate != nil {
			input.StartAfter = aws.String(startDatePath(prefix, *req.StartDate))
		}

		page, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("locate: list objects under %q: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			kind := classify(*obj.Key)
			if req.Mode == ModeFullLoadOnly && kind != KindLoad {
				continue
			}
			var lastModified time.Time
			if obj.LastModified != nil {
				lastModified = *obj.LastModified
			}
			if !withinWindow(kind, lastModified, req.StartDate, req.StopDate) {
				continue
			}
			out = append(out, Artifact{Key: *obj.Key, Kind: kind, LastModified: lastModified})
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	return Reorder(out), nil
}

// withinWindow keeps LOAD artifacts unconditionally (a snapshot always
// applies) and restricts CDC artifacts to (StartDate, StopDate), matching
// the source's "last_modified > start_date || file.contains(LOAD)" filter.
func withinWindow(kind Kind, lastModified time.Time, start, stop *time.Time) bool {
	if kind == KindLoad {
		return true
	}
	if start != nil && !lastModified.After(*start) {
		return false
	}
	if stop != nil && !lastModified.Before(*stop) {
		return false
	}
	return true
}

// startDatePath builds the "{prefix}{YYYY}/{MM}/{DD}/" key ListObjectsV2
// skips ahead to, so a long-lived table doesn't page through years of keys
// older than the requested window on every run.
func startDatePath(prefix string, start time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/", prefix, start.Year(), start.Month(), start.Day())
}

func tablePrefix(req Request) string {
	parts := []string{req.Prefix, req.Database, req.Schema, req.Table}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, strings.Trim(p, "/"))
		}
	}
	return strings.Join(nonEmpty, "/") + "/"
}
