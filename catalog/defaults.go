package catalog

import integration "github.com/goliatone/go-integration"

var defaultFields = []CanonicalField{
	{ID: "resident_id", DisplayName: "Resident ID", Required: true, DataType: DataTypeText},
	{ID: "first_name", DisplayName: "First Name", Required: true, DataType: DataTypeText},
	{ID: "last_name", DisplayName: "Last Name", Required: true, DataType: DataTypeText},
	{ID: "date_of_birth", DisplayName: "Date of Birth", Required: true, DataType: DataTypeDate},
	{ID: "move_in_date", DisplayName: "Move-In Date", Required: true, DataType: DataTypeDate},
	{ID: "unit_number", DisplayName: "Unit Number", Required: true, DataType: DataTypeText},
	{ID: "care_level", DisplayName: "Care Level", Required: true, DataType: DataTypeEnum},
	{ID: "move_out_date", DisplayName: "Move-Out Date", DataType: DataTypeDate},
	{ID: "community_id", DisplayName: "Community ID", DataType: DataTypeText},
	{ID: "payer_type", DisplayName: "Payer Type", DataType: DataTypeEnum},
	{ID: "monthly_rate", DisplayName: "Monthly Rate", DataType: DataTypeNumber},
	{ID: "primary_contact", DisplayName: "Primary Contact", DataType: DataTypeText},
	{ID: "contact_phone", DisplayName: "Contact Phone", DataType: DataTypeText},
	{ID: "contact_email", DisplayName: "Contact Email", DataType: DataTypeText},
	{ID: "is_active", DisplayName: "Active Resident", DataType: DataTypeBoolean},
}

var defaultTemplates = []MappingTemplate{
	{
		ID:          "pointclickcare",
		DisplayName: "PointClickCare",
		Connector:   "pointclickcare",
		Mappings: map[string]string{
			"resident_id":   "patientId",
			"first_name":    "firstName",
			"last_name":     "lastName",
			"date_of_birth": "birthDate",
			"move_in_date":  "admissionDate",
			"unit_number":   "roomDesc",
			"care_level":    "careLevelCode",
			"move_out_date": "dischargeDate",
			"community_id":  "facId",
			"payer_type":    "payerType",
			"is_active":     "patientStatus",
		},
	},
	{
		ID:          "matrixcare",
		DisplayName: "MatrixCare",
		Connector:   "matrixcare",
		Mappings: map[string]string{
			"resident_id":   "ResidentNumber",
			"first_name":    "FirstName",
			"last_name":     "LastName",
			"date_of_birth": "DOB",
			"move_in_date":  "AdmitDate",
			"unit_number":   "Room",
			"care_level":    "LevelOfCare",
			"move_out_date": "DischargeDate",
			"payer_type":    "PrimaryPayer",
		},
	},
	{
		ID:          "yardi",
		DisplayName: "Yardi Senior Living",
		Connector:   "yardi",
		Mappings: map[string]string{
			"resident_id":   "tenant_code",
			"first_name":    "first_name",
			"last_name":     "last_name",
			"date_of_birth": "birth_date",
			"move_in_date":  "move_in",
			"unit_number":   "unit_code",
			"care_level":    "care_type",
			"move_out_date": "move_out",
			"community_id":  "property_code",
			"monthly_rate":  "rent_amount",
			"is_active":     "status",
		},
	},
	{
		ID:          "salesforce",
		DisplayName: "Salesforce Senior Living",
		Connector:   "salesforce",
		Mappings: map[string]string{
			"resident_id":     "Resident_ID__c",
			"first_name":      "FirstName",
			"last_name":       "LastName",
			"date_of_birth":   "Birthdate",
			"move_in_date":    "Move_In_Date__c",
			"unit_number":     "Apartment__c",
			"care_level":      "Care_Level__c",
			"primary_contact": "Primary_Contact__c",
			"contact_phone":   "Phone",
			"contact_email":   "Email",
		},
	},
}

var defaultConnectors = []ConnectorType{
	{ID: "salesforce", DisplayName: "Salesforce", Category: integration.SystemTypeCRM, Description: "Sales pipeline, leads and move-in opportunities"},
	{ID: "welcomehome", DisplayName: "WelcomeHome", Category: integration.SystemTypeCRM, Description: "Senior living CRM for inquiries and tours"},
	{ID: "yardi", DisplayName: "Yardi", Category: integration.SystemTypeBilling, Description: "Property management, resident ledgers and billing"},
	{ID: "quickbooks", DisplayName: "QuickBooks", Category: integration.SystemTypeBilling, Description: "General ledger and accounts receivable"},
	{ID: "pointclickcare", DisplayName: "PointClickCare", Category: integration.SystemTypeEMR, Description: "Clinical records, assessments and census"},
	{ID: "matrixcare", DisplayName: "MatrixCare", Category: integration.SystemTypeEMR, Description: "Clinical documentation and care plans"},
	{ID: "hubspot", DisplayName: "HubSpot", Category: integration.SystemTypeMarketing, Description: "Campaigns, referral sources and web leads"},
	{ID: "kronos", DisplayName: "UKG Kronos", Category: integration.SystemTypeOperations, Description: "Staffing, scheduling and labor hours"},
	{ID: "custom_api", DisplayName: "Custom API", Category: integration.SystemTypeOther, Description: "Any REST source not listed above"},
}

var defaultSourceFields = []string{
	"patientId", "firstName", "lastName", "birthDate", "admissionDate", "dischargeDate",
	"roomDesc", "careLevelCode", "facId", "payerType", "patientStatus",
	"tenant_code", "unit_code", "move_in", "move_out", "care_type", "rent_amount", "status",
	"email", "phone", "emergency_contact",
}

// Default returns the built-in senior-living catalog.
func Default() *Catalog {
	c, err := New(defaultFields, defaultTemplates, defaultConnectors, defaultSourceFields)
	if err != nil {
		panic(err)
	}
	return c
}
