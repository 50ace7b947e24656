package collector

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"ec2-pricing/pkg/models"
)

const (
	instanceTypeLabel = "node.kubernetes.io/instance-type"
	zoneLabel         = "topology.kubernetes.io/zone"
	regionLabel       = "topology.kubernetes.io/region"
	eksCapacityLabel  = "eks.amazonaws.com/capacityType"
	karpenterLabel    = "karpenter.sh/capacity-type"
)

// NewKubernetesClient builds a clientset from kubeconfig, or from
// ~/.kube/config when kubeconfig is empty.
func NewKubernetesClient(kubeconfig string) (*kubernetes.Clientset, error) {
	if kubeconfig == "" {
		kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
	}
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, errors.Wrapf(err, "load kubeconfig %s", kubeconfig)
	}
	clientset, err := kubernetes.NewForConfig(config)
	return clientset, errors.Wrap(err, "create kubernetes client")
}

// GetInventory groups the cluster's nodes by instance type and zone, sorted
// by instance type then zone.
func GetInventory(ctx context.Context, clientset kubernetes.Interface) ([]models.NodeGroup, error) {
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "list nodes")
	}

	inventoryMap := make(map[string]*models.NodeGroup)

	for _, node := range nodes.Items {
		instanceType := node.Labels[instanceTypeLabel]
		if instanceType == "" {
			logrus.Warnf("node %s has no %s label, skipping", node.Name, instanceTypeLabel)
			continue
		}
		az := node.Labels[zoneLabel]
		region := node.Labels[regionLabel]

		isSpot := node.Labels[eksCapacityLabel] == "SPOT" || node.Labels[karpenterLabel] == "spot"

		key := instanceType + "-" + az
		if _, exists := inventoryMap[key]; !exists {
			inventoryMap[key] = &models.NodeGroup{
				InstanceType: instanceType,
				AZ:           az,
				Region:       region,
				IsSpot:       isSpot,
			}
		}
		inventoryMap[key].Count++
	}

	result := make([]models.NodeGroup, 0, len(inventoryMap))
	for _, group := range inventoryMap {
		result = append(result, *group)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].InstanceType != result[j].InstanceType {
			return result[i].InstanceType < result[j].InstanceType
		}
		return result[i].AZ < result[j].AZ
	})
	return result, nil
}
