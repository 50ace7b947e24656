package instancetypes

import (
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ec2-pricing/pkg/models"
)

func loadFixture(t *testing.T) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/instance-types.html")
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func findType(t *testing.T, types []models.InstanceType, apiName string) models.InstanceType {
	t.Helper()
	for _, it := range types {
		if it.APIName == apiName {
			return it
		}
	}
	require.Failf(t, "instance type not found", "%s", apiName)
	return models.InstanceType{}
}

func intPtr(v int) *int { return &v }

func TestParseFindsAllInstanceTypes(t *testing.T) {
	types := Parse(loadFixture(t))

	var names []string
	for _, it := range types {
		names = append(names, it.APIName)
	}
	sort.Strings(names)
	expected := []string{
		"m1.small", "m1.medium", "m1.large", "m1.xlarge",
		"t1.micro",
		"c1.medium", "c1.xlarge",
		"m2.xlarge", "m2.2xlarge", "m2.4xlarge",
		"m3.xlarge", "m3.2xlarge",
		"cc2.8xlarge", "cg1.4xlarge", "hi1.4xlarge", "hs1.8xlarge",
	}
	sort.Strings(expected)
	assert.Equal(t, expected, names)
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	types := Parse(loadFixture(t))
	require.Len(t, types, 16)
	assert.Equal(t, "m1.small", types[0].APIName)
	assert.Equal(t, "m3.2xlarge", types[5].APIName)
	assert.Equal(t, "t1.micro", types[6].APIName)
	assert.Equal(t, "hs1.8xlarge", types[15].APIName)
}

func TestParseNames(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, "M1 Small Instance", findType(t, types, "m1.small").Name)
	assert.Equal(t, "M1 Medium Instance", findType(t, types, "m1.medium").Name)
	assert.Equal(t, "Micro Instance", findType(t, types, "t1.micro").Name)
	assert.Equal(t, "Cluster Compute Eight Extra Large Instance", findType(t, types, "cc2.8xlarge").Name)
}

func TestParseCores(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, 1, findType(t, types, "m1.small").Cores)
	assert.Equal(t, 2, findType(t, types, "m2.xlarge").Cores)
	assert.Equal(t, 1, findType(t, types, "t1.micro").Cores)
}

func TestParseCorrectsClusterCores(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, 16, findType(t, types, "cc2.8xlarge").Cores)
	assert.Equal(t, 8, findType(t, types, "cg1.4xlarge").Cores)
}

func TestParseCorrectsHighIOAndHighStorageCores(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, 16, findType(t, types, "hi1.4xlarge").Cores)
	assert.Equal(t, 16, findType(t, types, "hs1.8xlarge").Cores)
}

func TestParseECUs(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, 1.0, findType(t, types, "m1.small").ECUs)
	assert.Equal(t, 6.5, findType(t, types, "m2.xlarge").ECUs)
	assert.Equal(t, 0.0, findType(t, types, "t1.micro").ECUs)
	assert.Equal(t, 88.0, findType(t, types, "cc2.8xlarge").ECUs)
	assert.Equal(t, 33.5, findType(t, types, "cg1.4xlarge").ECUs)
}

func TestParseRAM(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, "34.2 GiB", findType(t, types, "m2.2xlarge").RAM)
	assert.Equal(t, "613 MiB", findType(t, types, "t1.micro").RAM)
}

func TestParseDisk(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, intPtr(160), findType(t, types, "m1.small").Disk)
	assert.Equal(t, intPtr(1690), findType(t, types, "m1.xlarge").Disk)
	assert.Equal(t, intPtr(3370), findType(t, types, "cc2.8xlarge").Disk)
}

func TestParseNoDiskForEBSOnly(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Nil(t, findType(t, types, "m3.xlarge").Disk)
	assert.Nil(t, findType(t, types, "t1.micro").Disk)
}

func TestParseSSDDisk(t *testing.T) {
	types := Parse(loadFixture(t))
	hi1 := findType(t, types, "hi1.4xlarge")
	assert.Equal(t, intPtr(2048), hi1.Disk)
	assert.True(t, hi1.SSD)
	assert.False(t, findType(t, types, "hs1.8xlarge").SSD)
}

func TestParseHighStorageDisk(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, intPtr(2048*24), findType(t, types, "hs1.8xlarge").Disk)
}

func TestParseArchitectures(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, []int{32, 64}, findType(t, types, "m1.small").Architectures)
	assert.Equal(t, []int{64}, findType(t, types, "cc2.8xlarge").Architectures)
}

func TestParseIOPerformance(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, "moderate", findType(t, types, "m2.xlarge").IOPerformance)
	assert.Equal(t, "moderate", findType(t, types, "m3.xlarge").IOPerformance)
	assert.Equal(t, "high", findType(t, types, "c1.xlarge").IOPerformance)
	assert.Equal(t, "very high", findType(t, types, "cc2.8xlarge").IOPerformance)
}

func TestParseEBSOptimized(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Equal(t, "500 Mbps", findType(t, types, "m1.large").EBSOptimized)
	assert.Equal(t, "1000 Mbps", findType(t, types, "m2.4xlarge").EBSOptimized)
	assert.Empty(t, findType(t, types, "m3.2xlarge").EBSOptimized)
}

func TestParseEBSOnly(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.False(t, findType(t, types, "m1.large").EBSOnly)
	assert.True(t, findType(t, types, "t1.micro").EBSOnly)
	assert.True(t, findType(t, types, "m3.2xlarge").EBSOnly)
}

func TestParseNotes(t *testing.T) {
	types := Parse(loadFixture(t))

	assert.Contains(t, findType(t, types, "t1.micro").Notes, "Up to 2 EC2 Compute Units (for short periodic bursts)")

	cc2 := findType(t, types, "cc2.8xlarge").Notes
	assert.Equal(t, []string{
		`2 x Intel Xeon E5-2670, eight-core "Sandy Bridge" architecture`,
		"10 Gigabit Ethernet",
	}, cc2)

	cg1 := findType(t, types, "cg1.4xlarge").Notes
	assert.Contains(t, cg1, `2 x Intel Xeon X5570, quad-core "Nehalem" architecture`)
	assert.Contains(t, cg1, `2 x NVIDIA Tesla "Fermi" M2050 GPUs`)
	assert.Contains(t, cg1, "10 Gigabit Ethernet")

	hi1 := findType(t, types, "hi1.4xlarge").Notes
	assert.Contains(t, hi1, "8 cores + 8 hyperthreads for 16 virtual cores")
	assert.Contains(t, hi1, "2 SSD-based volumes each with 1024 GB")
	assert.Contains(t, hi1, "10 Gigabit Ethernet")

	hs1 := findType(t, types, "hs1.8xlarge").Notes
	assert.Contains(t, hs1, "8 cores + 8 hyperthreads for 16 virtual cores")
	assert.Contains(t, hs1, "10 Gigabit Ethernet")
	assert.NotContains(t, hs1, "")
}

func TestParseOmitsEmptyNotes(t *testing.T) {
	types := Parse(loadFixture(t))
	assert.Nil(t, findType(t, types, "m1.small").Notes)
}

func TestParseInvariants(t *testing.T) {
	types := Parse(loadFixture(t))

	seen := make(map[string]bool)
	for _, it := range types {
		assert.NotEmpty(t, it.APIName)
		assert.False(t, seen[it.APIName], "duplicate api name %s", it.APIName)
		seen[it.APIName] = true

		if it.Notes != nil {
			assert.NotEmpty(t, it.Notes, it.APIName)
		}
		if it.EBSOnly {
			assert.Nil(t, it.Disk, it.APIName)
			assert.False(t, it.SSD, it.APIName)
		}
		if it.Disk == nil {
			assert.True(t, it.EBSOnly || it.SSD, it.APIName)
		}

		require.NotEmpty(t, it.Architectures, it.APIName)
		assert.True(t, sort.IntsAreSorted(it.Architectures), it.APIName)
		for _, a := range it.Architectures {
			assert.Contains(t, []int{32, 64}, a, it.APIName)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	doc := loadFixture(t)
	assert.Equal(t, Parse(doc), Parse(doc))
	assert.Equal(t, Parse(doc), Parse(loadFixture(t)))
}

func TestParseEmptyDocument(t *testing.T) {
	types := Parse(docFromString(t, `<html><body><h1>Nothing here</h1><table><tr><th>Memory</th><td>1 GiB</td></tr></table></body></html>`))
	assert.NotNil(t, types)
	assert.Empty(t, types)

	assert.Empty(t, Parse(nil))
}

func TestParseFamilyWithoutBlocks(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family"><h2>Empty</h2><p>Coming soon</p></div>
<div class="instance-family"><h2>Standard</h2>
  <div class="instance-type"><h3>M1 Small Instance</h3></div>
</div>`))
	require.Len(t, types, 1)
	assert.Equal(t, "m1.small", types[0].APIName)
}

func TestParseIgnoresBlocksWithoutHeading(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family">
  <div class="instance-type"><table><tr><th>Memory</th><td>1 GiB</td></tr></table></div>
  <div class="instance-type"><h3> &nbsp; </h3></div>
  <div class="instance-type"><h4>High-CPU Medium Instance</h4></div>
</div>`))
	require.Len(t, types, 1)
	assert.Equal(t, "c1.medium", types[0].APIName)
}

func TestParseMalformedBlockDegrades(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family">
  <div class="instance-type"><h3>Mystery Instance</h3>
    <table>
      <tr><th>Cores</th><td>many</td></tr>
      <tr><th>EC2 Compute Units</th><td>lots</td></tr>
      <tr><th>Instance Storage</th><td>plenty</td></tr>
      <tr><th>Platform</th><td>ARM</td></tr>
      <tr><th>I/O Performance</th><td>Blazing</td></tr>
      <tr><th>EBS-Optimized Available</th><td>Yes</td></tr>
    </table>
    <ul class="notes"><li> </li></ul>
  </div>
  <div class="instance-type"><h3>M1 Large Instance</h3>
    <table><tr><th>Cores</th><td>2</td></tr><tr><th>Instance Storage</th><td>850 GB</td></tr></table>
  </div>
</div>`))
	require.Len(t, types, 2)

	mystery := types[0]
	assert.Equal(t, "mystery-instance", mystery.APIName)
	assert.Equal(t, 0, mystery.Cores)
	assert.Equal(t, 0.0, mystery.ECUs)
	assert.Nil(t, mystery.Disk)
	assert.False(t, mystery.EBSOnly)
	assert.Equal(t, []int{64}, mystery.Architectures)
	assert.Empty(t, mystery.IOPerformance)
	assert.Empty(t, mystery.EBSOptimized)
	assert.Nil(t, mystery.Notes)

	large := types[1]
	assert.Equal(t, "m1.large", large.APIName)
	assert.Equal(t, 2, large.Cores)
	assert.Equal(t, intPtr(850), large.Disk)
}

func TestParseKeepsRepeatedAPINames(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family">
  <div class="instance-type" data-api-name="m1.small"><h3>M1 Small Instance</h3></div>
  <div class="instance-type"><h3>M1 Small Instance</h3></div>
</div>`))
	require.Len(t, types, 2)
	assert.Equal(t, "m1.small", types[0].APIName)
	assert.Equal(t, "m1.small", types[1].APIName)
}

func TestParserWithFamilyRules(t *testing.T) {
	doc := docFromString(t, `
<div class="instance-family">
  <div class="instance-type"><h3>High Storage Eight Extra Large Instance</h3>
    <table>
      <tr><th>Physical Cores</th><td>8</td></tr>
      <tr><th>Instance Storage</th><td>2 TB per drive</td></tr>
    </table>
  </div>
  <div class="instance-type"><h3>M1 Small Instance</h3>
    <table><tr><th>Cores</th><td>1</td></tr><tr><th>Storage</th><td>160 GB</td></tr></table>
  </div>
</div>`)

	types := NewParser(WithFamilyRules(map[string]FamilyRule{
		"HS": {CoreFactor: 1, DriveCount: 12},
		"m":  {CoreFactor: 3},
	})).Parse(doc)
	require.Len(t, types, 2)
	assert.Equal(t, 8, types[0].Cores)
	assert.Equal(t, intPtr(2048*12), types[0].Disk)
	assert.Equal(t, 3, types[1].Cores)

	defaults := Parse(doc)
	assert.Equal(t, 16, defaults[0].Cores)
	assert.Equal(t, intPtr(2048*24), defaults[0].Disk)
}

func storageBlock(heading, storage string) string {
	return `<div class="instance-family"><div class="instance-type"><h3>` + heading + `</h3>
  <table><tr><th>Instance Storage</th><td>` + storage + `</td></tr></table>
</div></div>`
}

func TestParseUnsizedStorageIsNotEBSOnly(t *testing.T) {
	for _, storage := range []string{"SSD", "SSD-backed instance storage"} {
		types := Parse(docFromString(t, storageBlock("High I/O Quadruple Extra Large Instance", storage)))
		require.Len(t, types, 1, storage)
		assert.Nil(t, types[0].Disk, storage)
		assert.True(t, types[0].SSD, storage)
		assert.False(t, types[0].EBSOnly, storage)
	}

	types := Parse(docFromString(t, storageBlock("M1 Large Instance", "plenty")))
	require.Len(t, types, 1)
	assert.Nil(t, types[0].Disk)
	assert.False(t, types[0].SSD)
	assert.False(t, types[0].EBSOnly)
}

func TestParseDiskWithExplicitVolumeCount(t *testing.T) {
	for storage, expected := range map[string]int{
		"2 x 1,024 GB per volume":     2048,
		"2 SSD volumes, 1024 GB each": 2048,
		"4 x 420 GB":                  1680,
		"1 TB per drive":              1024,
		"1,690 GB (4 x 420 GB each)":  1690,
	} {
		types := Parse(docFromString(t, storageBlock("High I/O Quadruple Extra Large Instance", storage)))
		require.Len(t, types, 1, storage)
		assert.Equal(t, intPtr(expected), types[0].Disk, storage)
		assert.False(t, types[0].EBSOnly, storage)
	}

	types := Parse(docFromString(t, storageBlock("High Storage Eight Extra Large Instance", "12 x 2 TB per drive")))
	require.Len(t, types, 1)
	assert.Equal(t, intPtr(12*2048), types[0].Disk)
}

func TestParseNestedFamilies(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family"><h2>All</h2>
  <div class="instance-family"><h2>Standard</h2>
    <div class="instance-type"><h3>M1 Small Instance</h3></div>
  </div>
  <div class="instance-type"><h3>M1 Medium Instance</h3></div>
</div>`))
	require.Len(t, types, 2)
	assert.Equal(t, "m1.small", types[0].APIName)
	assert.Equal(t, "m1.medium", types[1].APIName)
}

func TestParseNestedNotes(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family"><div class="instance-type"><h3>M1 Small Instance</h3>
  <ul class="notes">
    <li>Outer<ul><li>Inner A</li><li>Inner B</li></ul></li>
    <li>Second</li>
  </ul>
</div></div>`))
	require.Len(t, types, 1)
	assert.Equal(t, []string{"Outer", "Second"}, types[0].Notes)
}

func TestParsePlainTextNotes(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family"><div class="instance-type"><h3>M1 Small Instance</h3>
  <div class="notes"> Only plain   text call-out </div>
</div></div>`))
	require.Len(t, types, 1)
	assert.Equal(t, []string{"Only plain text call-out"}, types[0].Notes)
}

func TestParseECUsWithQualifier(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family"><div class="instance-type"><h3>Cluster Compute Eight Extra Large Instance</h3>
  <table><tr><th>EC2 Compute Units</th><td>88 (up to 3.3 per core)</td></tr></table>
</div></div>`))
	require.Len(t, types, 1)
	assert.Equal(t, 88.0, types[0].ECUs)
}

func TestParseHyphenatedAPIName(t *testing.T) {
	types := Parse(docFromString(t, `
<div class="instance-family">
  <div class="instance-type" data-api-name="m7i-flex.large"><h3>M7i Flex Large</h3></div>
  <div class="instance-type"><h3>High Memory <code>u-6tb1.metal</code></h3></div>
</div>`))
	require.Len(t, types, 2)
	assert.Equal(t, "m7i-flex.large", types[0].APIName)
	assert.Equal(t, "u-6tb1.metal", types[1].APIName)
	assert.Equal(t, "High Memory", types[1].Name)
}
