package booking

// ServiceKey identifies one DPS service type on the service-catalog page.
type ServiceKey string

const (
	ServiceFirstTimeDL  ServiceKey = "first_time_dl"
	ServiceRenewDL      ServiceKey = "renew_dl"
	ServiceReplaceDL    ServiceKey = "replace_dl"
	ServiceTransferOOS  ServiceKey = "transfer_oos"
	ServiceCDL          ServiceKey = "cdl"
	ServiceTexasID      ServiceKey = "texas_id"
	ServiceChangeUpdate ServiceKey = "change_update"
	ServicePermit       ServiceKey = "permit"
)

// Service describes one catalog entry: the label the wizard shows and the
// keywords used to match its button when the exact label is absent.
type Service struct {
	Key         ServiceKey
	Name        string
	ButtonText  []string
	Description string
}

var services = map[ServiceKey]Service{
	ServiceFirstTimeDL: {
		Key:         ServiceFirstTimeDL,
		Name:        "Apply for first time Texas DL/Permit",
		ButtonText:  []string{"apply", "first time", "texas dl", "permit"},
		Description: "For people who have never held a Texas driver license",
	},
	ServiceRenewDL: {
		Key:         ServiceRenewDL,
		Name:        "Renew Texas DL/ID",
		ButtonText:  []string{"renew"},
		Description: "For renewing an existing Texas DL or ID card",
	},
	ServiceReplaceDL: {
		Key:         ServiceReplaceDL,
		Name:        "Replace Texas DL/ID",
		ButtonText:  []string{"replace"},
		Description: "For replacing a lost, stolen, or damaged Texas DL or ID",
	},
	ServiceTransferOOS: {
		Key:         ServiceTransferOOS,
		Name:        "Transfer out-of-state DL to Texas",
		ButtonText:  []string{"transfer", "out-of-state", "out of state"},
		Description: "For transferring a valid out-of-state license to Texas",
	},
	ServiceCDL: {
		Key:         ServiceCDL,
		Name:        "Commercial Driver License (CDL)",
		ButtonText:  []string{"commercial", "cdl"},
		Description: "For commercial driver license services",
	},
	ServiceTexasID: {
		Key:         ServiceTexasID,
		Name:        "Apply for Texas ID card",
		ButtonText:  []string{"id card", "texas id"},
		Description: "For applying for a Texas identification card (non-driver)",
	},
	ServiceChangeUpdate: {
		Key:         ServiceChangeUpdate,
		Name:        "Change/update information on DL/ID",
		ButtonText:  []string{"change", "update"},
		Description: "For updating name, address, or other info on your DL/ID",
	},
	ServicePermit: {
		Key:         ServicePermit,
		Name:        "Apply for Learner Permit",
		ButtonText:  []string{"learner", "permit"},
		Description: "For teens under 18 applying for a learner permit",
	},
}

// LookupService returns the catalog entry for a key.
func LookupService(key ServiceKey) (Service, bool) {
	s, ok := services[key]
	return s, ok
}
