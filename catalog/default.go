package catalog

// Category tags used by the default catalog.
const (
	CategoryStable    = "stable"
	CategoryHemat     = "hemat"
	CategoryUnlimited = "unlimited"
	CategoryCall      = "call"
	CategorySocial    = "social"
	CategoryStream    = "stream"
	CategoryWork      = "work"
	CategoryGaming    = "gaming"
	CategoryIoT       = "iot"
	CategoryRoaming   = "roaming"
)

var defaultPackages = []Package{
	{Name: "Sphinx Stable 20GB", QuotaLabel: "20GB", Price: 40000, Category: CategoryStable},
	{Name: "Sphinx Stable 50GB", QuotaLabel: "50GB", Price: 75000, Category: CategoryStable},
	{Name: "Sphinx Stable 100GB", QuotaLabel: "100GB", Price: 120000, Category: CategoryStable},
	{Name: "Sphinx Hemat 5GB", QuotaLabel: "5GB", Price: 25000, Category: CategoryHemat},
	{Name: "Sphinx Hemat 10GB", QuotaLabel: "10GB", Price: 35000, Category: CategoryHemat},
	{Name: "Sphinx Hemat 20GB", QuotaLabel: "20GB", Price: 45000, Category: CategoryHemat},
	{Name: "Sphinx Hemat 30GB", QuotaLabel: "30GB", Price: 55000, Category: CategoryHemat},
	{Name: "Sphinx Unlimited", QuotaLabel: "Unlimited", Price: 250000, Category: CategoryUnlimited},
	{Name: "Sphinx Call Pro", QuotaLabel: "300 Menit", Price: 50000, Category: CategoryCall},
	{Name: "Sphinx Call Flex", QuotaLabel: "150 Menit", Price: 30000, Category: CategoryCall},
	{Name: "Sphinx Call Lite", QuotaLabel: "60 Menit", Price: 15000, Category: CategoryCall},
	{Name: "Sphinx Social 10GB", QuotaLabel: "10GB", Price: 20000, Category: CategorySocial},
	{Name: "Sphinx Stream 50GB", QuotaLabel: "50GB", Price: 70000, Category: CategoryStream},
	{Name: "Sphinx Stream 100GB", QuotaLabel: "100GB", Price: 120000, Category: CategoryStream},
	{Name: "Sphinx Work Connect 30GB", QuotaLabel: "30GB", Price: 55000, Category: CategoryWork},
	{Name: "Sphinx Gamer Pro 40GB", QuotaLabel: "40GB", Price: 65000, Category: CategoryGaming},
	{Name: "Sphinx Gamer Max 80GB", QuotaLabel: "80GB", Price: 110000, Category: CategoryGaming},
	{Name: "Sphinx IoT Home 20GB", QuotaLabel: "20GB", Price: 30000, Category: CategoryIoT},
	{Name: "Sphinx IoT Fiber 30 Mbps", QuotaLabel: "Fiber IoT", Price: 150000, Category: CategoryIoT},
	{Name: "Sphinx Global Lite", QuotaLabel: "1GB", Price: 75000, Category: CategoryRoaming},
	{Name: "Sphinx Global Pass", QuotaLabel: "3GB", Price: 150000, Category: CategoryRoaming},
	{Name: "Sphinx Roam Max", QuotaLabel: "10GB", Price: 350000, Category: CategoryRoaming},
}

// Default returns the built-in Sphinx catalog.
func Default() *Catalog {
	c, err := New(defaultPackages)
	if err != nil {
		panic("catalog: default packages invalid: " + err.Error())
	}
	return c
}
