// Package metadata builds the EDMX metadata and AtomPub service
// documents from a service context.
package metadata

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/odata"
)

// BuildService assembles the service document: one workspace listing
// every collection by name.
func BuildService(ctx context.Context, svc odata.ServiceContext) (*Service, error) {
	colls, err := svc.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	ws := Workspace{Title: constants.DefaultNamespace}
	for _, coll := range colls {
		name, err := coll.CollectionName()
		if err != nil {
			return nil, err
		}
		ws.Collections = append(ws.Collections, Collection{Href: name, Title: name})
	}

	return &Service{
		XMLBase:   svc.ServiceBaseURL(),
		XMLNS:     constants.AppNamespace,
		XMLNSAtom: constants.AtomNamespace,
		Workspace: ws,
	}, nil
}

// BuildMetadata assembles the EDMX document: one EntityType and one
// EntitySet per collection, all inside a single default container and
// schema.
func BuildMetadata(ctx context.Context, svc odata.ServiceContext) (*Edmx, error) {
	colls, err := svc.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	// All collections share the service namespace, which also names the
	// schema and the default container.
	schemaNamespace := constants.DefaultNamespace
	var entityTypes []EntityType
	var entitySets []EntitySet

	for i, coll := range colls {
		name, err := coll.CollectionName()
		if err != nil {
			return nil, err
		}
		namespace, err := coll.CollectionNamespace()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			schemaNamespace = namespace
		}

		entityType, err := buildEntityType(ctx, coll, name)
		if err != nil {
			return nil, err
		}

		entityTypes = append(entityTypes, *entityType)
		entitySets = append(entitySets, EntitySet{
			Name:       name,
			EntityType: namespace + "." + name,
		})
	}

	return &Edmx{
		XMLNSEdmx: constants.EdmxNamespace,
		Version:   constants.EdmxVersion,
		DataServices: DataServices{
			XMLNSM:                constants.MetaNamespace,
			DataServiceVersion:    constants.DataServiceVersion,
			MaxDataServiceVersion: constants.MaxDataServiceVersion,
			Schemas: []Schema{{
				Namespace:   schemaNamespace,
				XMLNS:       constants.EdmNamespace,
				EntityTypes: entityTypes,
				EntityContainers: []EntityContainer{{
					Name:       schemaNamespace,
					IsDefault:  true,
					EntitySets: entitySets,
				}},
			}},
		},
	}, nil
}

func buildEntityType(ctx context.Context, coll odata.CollectionContext, name string) (*EntityType, error) {
	schema, err := coll.Schema(ctx)
	if err != nil {
		return nil, err
	}

	var properties []Property
	for _, field := range schema.Fields() {
		edmType, err := ToEdmType(field.Type)
		if err != nil {
			if coll.OnUnsupportedFeature() == odata.OnUnsupportedWarn {
				slog.Warn("Unsupported field type, skipping column",
					"collection", name,
					"field", field.Name,
					"type", field.Type.String())
				continue
			}
			return nil, err
		}
		properties = append(properties, Property{
			Name:     field.Name,
			Type:     edmType,
			Nullable: field.Nullable,
		})
	}

	keyName, err := keyPropertyName(coll, properties)
	if err != nil {
		return nil, err
	}

	return &EntityType{
		Name:       name,
		Key:        EntityKey{PropertyRefs: []PropertyRef{{Name: keyName}}},
		Properties: properties,
	}, nil
}

// keyPropertyName picks the declared key: the context's key column when
// assigned, otherwise the first mapped property.
func keyPropertyName(coll odata.CollectionContext, properties []Property) (string, error) {
	key, err := coll.KeyColumn()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, odata.ErrKeyColumnNotAssigned) {
		return "", err
	}
	if len(properties) == 0 {
		return "", odata.Internal(fmt.Errorf("no properties to declare a key from"))
	}
	return properties[0].Name, nil
}

// EncodeDocument renders a document prefixed with the protocol's XML
// prolog. Output is deterministic: attribute and element order follow
// the document structs.
func EncodeDocument(doc any) ([]byte, error) {
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(constants.XMLDeclaration)+len(body))
	out = append(out, constants.XMLDeclaration...)
	out = append(out, body...)
	return out, nil
}
