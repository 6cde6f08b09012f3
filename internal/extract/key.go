package extract

// Key is a canonical company field.
type Key int

// Canonical fields.
const (
	KeyName Key = iota
	KeyNameInternational
	KeyNameShort
	KeyTaxCode
	KeyTaxAddress
	KeyAddress
	KeyRepresentative
	KeyEstablishedDate
	KeyStatus
	KeyBusinessType
	KeyBusinessSector
	KeyManagedBy
	KeyPhone
)

// keys lists every Key in declaration order.
var keys = []Key{
	KeyName, KeyNameInternational, KeyNameShort, KeyTaxCode, KeyTaxAddress,
	KeyAddress, KeyRepresentative, KeyEstablishedDate, KeyStatus,
	KeyBusinessType, KeyBusinessSector, KeyManagedBy, KeyPhone,
}

var keyNames = map[Key]string{
	KeyName:              "name",
	KeyNameInternational: "nameInternational",
	KeyNameShort:         "nameShort",
	KeyTaxCode:           "taxCode",
	KeyTaxAddress:        "taxAddress",
	KeyAddress:           "address",
	KeyRepresentative:    "representative",
	KeyEstablishedDate:   "establishedDate",
	KeyStatus:            "status",
	KeyBusinessType:      "businessType",
	KeyBusinessSector:    "businessSector",
	KeyManagedBy:         "managedBy",
	KeyPhone:             "phone",
}

// mapping holds the labels each key is read from, highest priority first.
var mapping = map[Key][]string{
	KeyName:              {"tên công ty", "company name"},
	KeyNameInternational: {"tên quốc tế"},
	KeyNameShort:         {"tên viết tắt"},
	KeyTaxCode:           {"mã số thuế"},
	KeyTaxAddress:        {"địa chỉ thuế"},
	KeyAddress:           {"địa chỉ thuế", "địa chỉ"},
	KeyRepresentative:    {"người đại diện pháp luật", "người đại diện", "giám đốc"},
	KeyEstablishedDate:   {"ngày thành lập", "ngày hoạt động", "ngày cấp"},
	KeyStatus:            {"tình trạng", "trạng thái"},
	KeyBusinessType:      {"loại hình doanh nghiệp", "loại hình dn", "loại hình"},
	KeyBusinessSector:    {"ngành nghề chính", "ngành nghề"},
	KeyManagedBy:         {"quản lý bởi"},
	KeyPhone:             {"điện thoại", "số điện thoại", "phone", "tel"},
}

// Keys returns every canonical key.
func Keys() []Key {
	return append([]Key(nil), keys...)
}

// String returns the record field name of the key.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// Labels returns the normalized labels k is read from, in priority order.
func (k Key) Labels() []string {
	return append([]string(nil), mapping[k]...)
}

// Mapping returns a copy of the key to labels table.
func Mapping() map[Key][]string {
	out := make(map[Key][]string, len(mapping))
	for k, labels := range mapping {
		out[k] = append([]string(nil), labels...)
	}
	return out
}
