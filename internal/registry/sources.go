package registry

// catalogue is the compiled-in set of known sources. Additions require
// a redeploy — there is no runtime mutation path.
var catalogue = []Source{
  {
    Name:                "FTC",
    URL:                 "https://www.ftc.gov/news-events/news/press-releases",
    Type:                SourceGovernmentPage,
    AuthorityType:       AuthorityNational,
    Jurisdiction:        "United States",
    JurisdictionCountry: "United States",
    ReliabilityTier:     5,
    SearchKeywords:      []string{"COPPA", "children's privacy", "online safety"},
    Description:         "US Federal Trade Commission press releases",
  },
  {
    Name:                "California Legislature",
    URL:                 "https://leginfo.legislature.ca.gov/rss/bills.xml",
    Type:                SourceRSSFeed,
    AuthorityType:       AuthorityState,
    Jurisdiction:        "California",
    JurisdictionCountry: "United States",
    JurisdictionState:   "California",
    ReliabilityTier:     5,
    SearchKeywords:      []string{"age-appropriate design code", "AB-2273", "minors"},
    Description:         "California state legislature bill feed",
  },
  {
    Name:                "European Commission - Digital Services",
    URL:                 "https://digital-strategy.ec.europa.eu/en/policies/digital-services-act-package/rss.xml",
    Type:                SourceRSSFeed,
    AuthorityType:       AuthoritySupranational,
    Jurisdiction:        "European Union",
    JurisdictionCountry: "European Union",
    ReliabilityTier:     5,
    SearchKeywords:      []string{"DSA", "Digital Services Act", "Article 28", "minors"},
    Description:         "EU Commission digital services policy feed",
  },
  {
    Name:                "UK DSIT",
    URL:                 "https://www.gov.uk/government/organisations/department-for-science-innovation-and-technology.atom",
    Type:                SourceRSSFeed,
    AuthorityType:       AuthorityNational,
    Jurisdiction:        "United Kingdom",
    JurisdictionCountry: "United Kingdom",
    ReliabilityTier:     4,
    SearchKeywords:      []string{"Online Safety Act", "Ofcom", "children"},
    Description:         "UK Department for Science, Innovation & Technology feed",
  },
  {
    Name:                "Global Legal Database - Minors",
    URL:                 "https://www.globalregulatorytracker.example/search?q=minors",
    Type:                SourceLegalDatabase,
    AuthorityType:       AuthorityNational,
    Jurisdiction:        "Global",
    JurisdictionCountry: "",
    ReliabilityTier:     3,
    SearchKeywords:      []string{"children", "minors", "age verification"},
    Description:         "Third-party aggregator of minors-focused regulatory text",
  },
  {
    Name:                "X Search - Kids Online Safety",
    URL:                 "kids online safety act OR COPPA OR age verification law",
    Type:                SourceMicroblog,
    AuthorityType:       AuthorityNational,
    Jurisdiction:        "Global",
    JurisdictionCountry: "",
    ReliabilityTier:     2,
    SearchKeywords:      []string{"KOSA", "COPPA", "age verification"},
    Description:         "Microblog recent-search query tracking minors-safety chatter",
  },
}
