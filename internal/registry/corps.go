package registry

// corpEntry mirrors one <list> element of DART's corpCode.xml dump.
type corpEntry struct {
	CorpCode    string `xml:"corp_code"`
	CorpName    string `xml:"corp_name"`
	CorpNameEng string `xml:"corp_name_eng"`
	StockCode   string `xml:"stock_code"`
	ModifyDate  string `xml:"modify_date"`
}

// topCorps are the largest Korean listed corporations, preloaded so
// common searches resolve without downloading the full corpCode dump.
var topCorps = []corpEntry{
	{CorpCode: "00126380", CorpName: "삼성전자", CorpNameEng: "Samsung Electronics Co., Ltd.", StockCode: "005930"},
	{CorpCode: "00164742", CorpName: "현대자동차", CorpNameEng: "Hyundai Motor Company", StockCode: "005380"},
	{CorpCode: "00164779", CorpName: "현대모비스", CorpNameEng: "Hyundai Mobis Co., Ltd.", StockCode: "012330"},
	{CorpCode: "00356361", CorpName: "LG화학", CorpNameEng: "LG Chem, Ltd.", StockCode: "051910"},
	{CorpCode: "00120030", CorpName: "SK하이닉스", CorpNameEng: "SK Hynix, Inc.", StockCode: "000660"},
	{CorpCode: "00155319", CorpName: "POSCO", CorpNameEng: "POSCO", StockCode: "005490"},
	{CorpCode: "00130641", CorpName: "LG전자", CorpNameEng: "LG Electronics Inc.", StockCode: "066570"},
	{CorpCode: "00159193", CorpName: "카카오", CorpNameEng: "Kakao Corp.", StockCode: "035720"},
	{CorpCode: "00164788", CorpName: "현대건설", CorpNameEng: "Hyundai Engineering & Construction Co., Ltd.", StockCode: "000720"},
	{CorpCode: "00266961", CorpName: "셀트리온", CorpNameEng: "Celltrion, Inc.", StockCode: "068270"},
}
