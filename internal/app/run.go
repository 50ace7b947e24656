package app

import (
	"context"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ec2-pricing/internal/collector"
	"ec2-pricing/internal/pricing"
	"ec2-pricing/pkg/models"
)

// Pricer is the part of pricing.PriceClient the evaluation needs.
type Pricer interface {
	GetSpotPrice(ctx context.Context, instType, az string) (float64, error)
	GetOnDemandPrice(ctx context.Context, instType, region string) (float64, error)
	GetReplacementOptions(ctx context.Context, group models.NodeGroup, catalog *models.Catalog, limit int) ([]models.Replacement, error)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare on-demand and spot prices of the cluster's node groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		return Run(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

func init() {
	evaluateCmd.Flags().String("kubeconfig", "", "Path to the kubeconfig file. Defaults to ~/.kube/config.")
	evaluateCmd.Flags().String("region", "us-east-1", "AWS region of the cluster.")
	evaluateCmd.Flags().Int("replacements", 3, "Number of replacement suggestions per node group, 0 to disable.")

	viper.BindPFlag("kubeconfig", evaluateCmd.Flags().Lookup("kubeconfig"))
	viper.BindPFlag("region", evaluateCmd.Flags().Lookup("region"))
	viper.BindPFlag("replacements", evaluateCmd.Flags().Lookup("replacements"))
}

// Run executes the spot evaluation workflow against the configured cluster.
func Run(ctx context.Context, w io.Writer, cfg *Config) error {
	clientset, err := collector.NewKubernetesClient(cfg.Kubeconfig)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return errors.Wrap(err, "load aws config")
	}
	priceClient := pricing.NewPriceClient(awsCfg)

	inventory, err := collector.GetInventory(ctx, clientset)
	if err != nil {
		return err
	}

	types, err := loadInstanceTypes(ctx, cfg)
	if err != nil {
		return err
	}

	evaluations := Evaluate(ctx, priceClient, inventory, models.NewCatalog(types), cfg.Replacements)
	return WriteEvaluations(w, evaluations, cfg.Output)
}

// Evaluate prices every node group. Groups whose prices can't be found are
// logged and left out.
func Evaluate(ctx context.Context, prices Pricer, inventory []models.NodeGroup, catalog *models.Catalog, replacements int) []Evaluation {
	var evaluations []Evaluation
	for _, item := range inventory {
		spot, err := prices.GetSpotPrice(ctx, item.InstanceType, item.AZ)
		if err != nil {
			logrus.Warnf("failed to get spot price for %s/%s: %v", item.InstanceType, item.AZ, err)
			continue
		}

		onDemand, err := prices.GetOnDemandPrice(ctx, item.InstanceType, item.Region)
		if err != nil {
			logrus.Warnf("failed to get on-demand price for %s/%s: %v", item.InstanceType, item.Region, err)
			continue
		}

		e := Evaluation{Group: item, OnDemand: onDemand, Spot: spot}
		if onDemand > 0 {
			e.Savings = ((onDemand - spot) / onDemand) * 100
		}

		it, ok := catalog.Lookup(item.InstanceType)
		if !ok {
			logrus.Debugf("%s is not in the instance types document", item.InstanceType)
			evaluations = append(evaluations, e)
			continue
		}
		e.Cores = it.Cores
		e.RAM = it.RAM

		if replacements > 0 {
			alternatives, err := prices.GetReplacementOptions(ctx, item, catalog, replacements)
			if err != nil {
				logrus.Warnf("failed to find alternatives for %s/%s: %v", item.InstanceType, item.AZ, err)
			}
			e.Replacements = alternatives
		}
		evaluations = append(evaluations, e)
	}
	return evaluations
}
