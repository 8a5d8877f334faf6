package common

// Scene tags filled by the catalog
const (
	TagSourceID                 = "sourceID"
	TagPlatform                 = "platform"
	TagProductType              = "productType"
	TagTier                     = "tier"
	TagAcquisitionDate          = "acquisitionDate"
	TagCloudCoverPercentage     = "cloudCoverPercentage"
	TagLandCloudCoverPercentage = "landCloudCoverPercentage"
	TagSunAzimuth               = "sunAzimuth"
	TagSunElevation             = "sunElevation"
	TagWRSPath                  = "wrsPath"
	TagWRSRow                   = "wrsRow"
)
