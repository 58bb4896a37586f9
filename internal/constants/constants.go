package constants

// OData v3 XML namespaces
const (
	EdmNamespace    = "http://schemas.microsoft.com/ado/2009/11/edm"
	EdmxNamespace   = "http://schemas.microsoft.com/ado/2007/06/edmx"
	MetaNamespace   = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	DataNamespace   = "http://schemas.microsoft.com/ado/2007/08/dataservices"
	SchemeNamespace = "http://schemas.microsoft.com/ado/2007/08/dataservices/scheme"
	AtomNamespace   = "http://www.w3.org/2005/Atom"
	AppNamespace    = "http://www.w3.org/2007/app"
)

// Version attributes emitted on the metadata document
const (
	EdmxVersion           = "1.0"
	DataServiceVersion    = "3.0"
	MaxDataServiceVersion = "3.0"
)

// OData system query options
const (
	QueryFilter  = "$filter"
	QuerySelect  = "$select"
	QueryOrderBy = "$orderby"
	QueryTop     = "$top"
	QuerySkip    = "$skip"
)

// Metadata endpoint path segment
const MetadataEndpoint = "$metadata"

// Content types
const (
	ContentTypeXML      = "application/xml;charset=utf-8"
	ContentTypeAtomFeed = "application/atom+xml;type=feed;charset=utf-8"
)

// XMLDeclaration is the document prolog emitted before every XML body.
const XMLDeclaration = `<?xml version="1.0" encoding="utf-8"?>`

// Default values
const (
	DefaultNamespace      = "default"
	DefaultKeyColumnAlias = "__id__"
	DefaultRows           = 100
	DefaultMaxRows        = 1_000_000
	DefaultResponseSize   = 512_000 // initial response buffer capacity in bytes
	DefaultAddr           = ":3050"
	DefaultBasePath       = "/"
)
