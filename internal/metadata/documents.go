package metadata

import "encoding/xml"

// Document shapes for the $metadata and service endpoints, marshaled
// with encoding/xml. Namespace prefixes are spelled directly into the
// element and attribute names: output prefix control is otherwise not
// available, and the protocol fixes every namespace URI anyway. Field
// order below is attribute and element order on the wire.

type Edmx struct {
	XMLName      xml.Name `xml:"edmx:Edmx"`
	XMLNSEdmx    string   `xml:"xmlns:edmx,attr"`
	Version      string   `xml:"Version,attr"`
	DataServices DataServices
}

type DataServices struct {
	XMLName               xml.Name `xml:"edmx:DataServices"`
	XMLNSM                string   `xml:"xmlns:m,attr"`
	DataServiceVersion    string   `xml:"m:DataServiceVersion,attr"`
	MaxDataServiceVersion string   `xml:"m:MaxDataServiceVersion,attr"`
	Schemas               []Schema `xml:"Schema"`
}

type Schema struct {
	Namespace        string            `xml:"Namespace,attr"`
	XMLNS            string            `xml:"xmlns,attr"`
	EntityTypes      []EntityType      `xml:"EntityType"`
	EntityContainers []EntityContainer `xml:"EntityContainer"`
}

type EntityType struct {
	Name       string     `xml:"Name,attr"`
	Key        EntityKey  `xml:"Key"`
	Properties []Property `xml:"Property"`
}

type EntityKey struct {
	PropertyRefs []PropertyRef `xml:"PropertyRef"`
}

type PropertyRef struct {
	Name string `xml:"Name,attr"`
}

// Property is one EDM property declaration. See the OData v3 CSDL spec:
// https://www.odata.org/documentation/odata-version-3-0/common-schema-definition-language-csdl/
type Property struct {
	Name     string `xml:"Name,attr"`
	Type     string `xml:"Type,attr"`
	Nullable bool   `xml:"Nullable,attr"`
}

type EntityContainer struct {
	Name       string      `xml:"Name,attr"`
	IsDefault  bool        `xml:"m:IsDefaultEntityContainer,attr"`
	EntitySets []EntitySet `xml:"EntitySet"`
}

type EntitySet struct {
	Name       string `xml:"Name,attr"`
	EntityType string `xml:"EntityType,attr"`
}

// Service is the AtomPub service document root.
type Service struct {
	XMLName   xml.Name  `xml:"service"`
	XMLBase   string    `xml:"xml:base,attr"`
	XMLNS     string    `xml:"xmlns,attr"`
	XMLNSAtom string    `xml:"xmlns:atom,attr"`
	Workspace Workspace `xml:"workspace"`
}

type Workspace struct {
	Title       string       `xml:"atom:title"`
	Collections []Collection `xml:"collection"`
}

type Collection struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"atom:title"`
}
