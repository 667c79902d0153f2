/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/smithy-go"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
)

// ECRProviderName is the name of the ECR provider.
const ECRProviderName = "ecr"

// ecrPattern is the full-string grammar of an ECR repository.
var ecrPattern = regexp.MustCompile(`^(\d+)\.dkr\.ecr\.([a-z0-9-]+)\.amazonaws\.com/([A-Za-z0-9/_-]+)$`)

// ECRCoordinate identifies an ECR repository.
type ECRCoordinate struct {
	AccountID      string
	Region         string
	RepositoryName string
}

// ParseECR parses "<account>.dkr.ecr.<region>.amazonaws.com/<name>".
// Any other string does not match.
func ParseECR(s string) (ECRCoordinate, bool) {
	m := ecrPattern.FindStringSubmatch(s)
	if m == nil {
		return ECRCoordinate{}, false
	}
	return ECRCoordinate{AccountID: m[1], Region: m[2], RepositoryName: m[3]}, true
}

// Registry returns the registry host of the coordinate.
func (c ECRCoordinate) Registry() string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", c.AccountID, c.Region)
}

// String re-serializes the coordinate. ParseECR(c.String()) returns c.
func (c ECRCoordinate) String() string {
	return c.Registry() + "/" + c.RepositoryName
}

// ECRAPI defines the ECR operations used in this package.
type ECRAPI interface {
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
}

// ClientConfig holds the AWS settings used to create ECR clients.
type ClientConfig struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// loadAWSConfig is overridden in tests.
var loadAWSConfig = config.LoadDefaultConfig

// NewECRClient creates an ECR client. The region is mandatory.
func NewECRClient(ctx context.Context, cfg ClientConfig) (ECRAPI, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not specified")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return ecr.NewFromConfig(awsCfg), nil
}

// ECRProvider recognizes ECR repositories and creates them on demand.
type ECRProvider struct {
	// Credentials holds everything but the region, which comes from
	// the coordinate.
	Credentials ClientConfig
	// NewClient creates a client for a region. Defaults to NewECRClient.
	NewClient func(ctx context.Context, cfg ClientConfig) (ECRAPI, error)
}

var _ Provider = (*ECRProvider)(nil)

// NewECRProvider returns an ECRProvider using the given credentials.
func NewECRProvider(creds ClientConfig) *ECRProvider {
	return &ECRProvider{Credentials: creds, NewClient: NewECRClient}
}

// Name returns "ecr".
func (p *ECRProvider) Name() string {
	return ECRProviderName
}

// Match parses repository as an ECR coordinate.
func (p *ECRProvider) Match(repository string) (Repository, bool) {
	c, ok := ParseECR(repository)
	if !ok {
		return nil, false
	}
	return &ECRRepository{Coordinate: c, provider: p}, true
}

// ECRRepository is an ECR repository that can be created on demand.
type ECRRepository struct {
	Coordinate ECRCoordinate
	provider   *ECRProvider
}

var _ Repository = (*ECRRepository)(nil)

func (r *ECRRepository) String() string {
	return r.Coordinate.String()
}

// Ensure creates the repository, tagged with its creator and package.
// A repository that already exists is not an error.
func (r *ECRRepository) Ensure(ctx context.Context, packageName string) error {
	c := r.Coordinate

	newClient := r.provider.NewClient
	if newClient == nil {
		newClient = NewECRClient
	}

	cfg := r.provider.Credentials
	cfg.Region = c.Region

	client, err := newClient(ctx, cfg)
	if err != nil {
		return r.provisionError(err)
	}

	logging.DebugContext(ctx, "Ensuring AWS ECR repository `%s` exists", c)

	_, err = client.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(c.RepositoryName),
		Tags: []types.Tag{
			{Key: aws.String("CreatedBy"), Value: aws.String("monodist")},
			{Key: aws.String("PackageName"), Value: aws.String(packageName)},
		},
	})
	if err != nil {
		var exists *types.RepositoryAlreadyExistsException
		if stderrors.As(err, &exists) {
			logging.DebugContext(ctx, "AWS ECR repository `%s` already exists", c)
			return nil
		}
		return r.provisionError(err)
	}

	logging.ActionContext(ctx, "Created", "AWS ECR repository `%s`", c)
	return nil
}

func (r *ECRRepository) provisionError(err error) error {
	c := r.Coordinate

	explanation := fmt.Sprintf("The AWS ECR repository `%s` could not be created in account %s, region %s. "+
		"Check that your AWS credentials are valid and allow `ecr:CreateRepository`.",
		c.RepositoryName, c.AccountID, c.Region)

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		explanation += fmt.Sprintf(" AWS error code: %s.", apiErr.ErrorCode())
	}

	return errors.New(errors.ProvisionError, "failed to create AWS ECR repository").
		WithCause(err).
		WithExplanation("%s", explanation).
		WithRemediation()
}
