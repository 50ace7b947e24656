package pricing

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	ptypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"ec2-pricing/pkg/models"
)

// ErrNoPrice is returned when AWS has no price for the requested type.
var ErrNoPrice = errors.New("no price available")

type EC2API interface {
	DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

type PricingAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

type PriceClient struct {
	EC2Client     EC2API
	PricingClient PricingAPI

	now func() time.Time
}

func NewPriceClient(cfg aws.Config) *PriceClient {
	// Pricing API is only available in us-east-1 or ap-south-1
	pricingCfg := cfg.Copy()
	pricingCfg.Region = "us-east-1"

	return &PriceClient{
		EC2Client:     ec2.NewFromConfig(cfg),
		PricingClient: pricing.NewFromConfig(pricingCfg),
		now:           time.Now,
	}
}

func (pc *PriceClient) GetSpotPrice(ctx context.Context, instType, az string) (float64, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []ec2types.InstanceType{ec2types.InstanceType(instType)},
		AvailabilityZone:    aws.String(az),
		ProductDescriptions: []string{"Linux/UNIX"},
		StartTime:           aws.Time(pc.clock()),
		MaxResults:          aws.Int32(1),
	}
	out, err := pc.EC2Client.DescribeSpotPriceHistory(ctx, input)
	if err != nil {
		return 0, errors.Wrapf(err, "describe spot price history for %s in %s", instType, az)
	}
	if len(out.SpotPriceHistory) == 0 || out.SpotPriceHistory[0].SpotPrice == nil {
		return 0, errors.Wrapf(ErrNoPrice, "spot %s in %s", instType, az)
	}
	price, err := strconv.ParseFloat(*out.SpotPriceHistory[0].SpotPrice, 64)
	return price, errors.Wrapf(err, "parse spot price for %s", instType)
}

func (pc *PriceClient) GetOnDemandPrice(ctx context.Context, instType, region string) (float64, error) {
	filters := []ptypes.Filter{
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("instanceType"), Value: aws.String(instType)},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("regionCode"), Value: aws.String(region)},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("operatingSystem"), Value: aws.String("Linux")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("preInstalledSw"), Value: aws.String("NA")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("tenancy"), Value: aws.String("Shared")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("capacitystatus"), Value: aws.String("Used")},
	}

	out, err := pc.PricingClient.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters:     filters,
		MaxResults:  aws.Int32(1),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "get products for %s in %s", instType, region)
	}
	if len(out.PriceList) == 0 {
		return 0, errors.Wrapf(ErrNoPrice, "on-demand %s in %s", instType, region)
	}
	return parseOnDemandUSDPrice(out.PriceList[0])
}

type priceListItem struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// parseOnDemandUSDPrice reads the hourly USD rate from one Pricing API price
// list item. Terms and dimensions are visited in key order so the result does
// not depend on map iteration.
func parseOnDemandUSDPrice(item string) (float64, error) {
	var parsed priceListItem
	if err := json.Unmarshal([]byte(item), &parsed); err != nil {
		return 0, errors.Wrap(err, "decode price list item")
	}

	for _, termKey := range sortedKeys(parsed.Terms.OnDemand) {
		dims := parsed.Terms.OnDemand[termKey].PriceDimensions
		for _, dimKey := range sortedKeys(dims) {
			usd, ok := dims[dimKey].PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return 0, errors.Wrapf(err, "parse USD price %q", usd)
			}
			return price, nil
		}
	}
	return 0, errors.Wrap(ErrNoPrice, "no USD on-demand price dimension")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetReplacementOptions returns up to limit instance types from catalog that
// can take over the group's nodes at a lower spot price in the same zone:
// same architectures, at least as many cores and at least as much memory.
func (pc *PriceClient) GetReplacementOptions(ctx context.Context, group models.NodeGroup, catalog *models.Catalog, limit int) ([]models.Replacement, error) {
	current, ok := catalog.Lookup(group.InstanceType)
	if !ok {
		return nil, errors.Errorf("instance type %s is not in the catalog", group.InstanceType)
	}
	currentPrice, err := pc.GetSpotPrice(ctx, group.InstanceType, group.AZ)
	if err != nil {
		return nil, err
	}

	var options []models.Replacement
	for _, name := range catalog.APINames() {
		candidate, _ := catalog.Lookup(name)
		if name == current.APIName || !canReplace(current, candidate) {
			continue
		}
		price, err := pc.GetSpotPrice(ctx, name, group.AZ)
		if errors.Cause(err) == ErrNoPrice {
			continue
		}
		if err != nil {
			return nil, err
		}
		if price >= currentPrice {
			continue
		}
		perNode := currentPrice - price
		options = append(options, models.Replacement{
			InstanceType:           name,
			SpotPrice:              price,
			SavingsPerNodePerHour:  perNode,
			SavingsPerGroupPerHour: perNode * float64(group.Count),
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].SavingsPerNodePerHour > options[j].SavingsPerNodePerHour
	})
	if limit > 0 && len(options) > limit {
		options = options[:limit]
	}
	return options, nil
}

func canReplace(current, candidate models.InstanceType) bool {
	for _, arch := range current.Architectures {
		if !candidate.SupportsArchitecture(arch) {
			return false
		}
	}
	if candidate.Cores < current.Cores {
		return false
	}
	need, err := humanize.ParseBytes(current.RAM)
	if err != nil {
		logrus.Debugf("can't compare memory of %s: %v", current.APIName, err)
		return false
	}
	have, err := humanize.ParseBytes(candidate.RAM)
	if err != nil {
		logrus.Debugf("can't compare memory of %s: %v", candidate.APIName, err)
		return false
	}
	return have >= need
}

func (pc *PriceClient) clock() time.Time {
	if pc.now == nil {
		return time.Now()
	}
	return pc.now()
}
