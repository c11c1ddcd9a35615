package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"code":         &graphql.Field{Type: graphql.String},
			"display_name": &graphql.Field{Type: graphql.String},
			"short_code":   &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"distance":     &graphql.Field{Type: graphql.Float},
		},
	})

	walkSegmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WalkSegment",
		Fields: graphql.Fields{
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
			"polyline":         &graphql.Field{Type: graphql.String},
			"heuristic":        &graphql.Field{Type: graphql.Boolean},
		},
	})

	arrivalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ArrivalCandidate",
		Fields: graphql.Fields{
			"eta_seconds": &graphql.Field{Type: graphql.Int},
			"vehicle_id":  &graphql.Field{Type: graphql.String},
		},
	})

	itineraryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Itinerary",
		Fields: graphql.Fields{
			"route_code":          &graphql.Field{Type: graphql.String},
			"departure_stop":      &graphql.Field{Type: stopType},
			"arrival_stop":        &graphql.Field{Type: stopType},
			"intermediate_stops":  &graphql.Field{Type: graphql.NewList(graphql.String)},
			"walk_to_stop":        &graphql.Field{Type: walkSegmentType},
			"wait_seconds":        &graphql.Field{Type: graphql.Int},
			"ride_seconds":        &graphql.Field{Type: graphql.Int},
			"walk_from_stop":      &graphql.Field{Type: walkSegmentType},
			"total_seconds":       &graphql.Field{Type: graphql.Int},
			"catchable":           &graphql.Field{Type: graphql.Boolean},
			"selected_vehicle_id": &graphql.Field{Type: graphql.String},
			"all_candidates":      &graphql.Field{Type: graphql.NewList(arrivalType)},
		},
	})

	comparisonType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ItineraryComparison",
		Fields: graphql.Fields{
			"candidates":         &graphql.Field{Type: graphql.NewList(itineraryType)},
			"best":               &graphql.Field{Type: itineraryType},
			"baseline_seconds":   &graphql.Field{Type: graphql.Int},
			"recommend_internal": &graphql.Field{Type: graphql.Boolean},
		},
	})

	sequencedStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SequencedStop",
		Fields: graphql.Fields{
			"code":       &graphql.Field{Type: graphql.String},
			"short_code": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stopsNearby": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Find shuttle stops near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Catalog.NearestStops(p.Context, domain.GeoPoint{Lat: lat, Lon: lon}, radius, limit)
				},
			},
			"stop": &graphql.Field{
				Type:        stopType,
				Description: "Get a stop by catalog code",
				Args: graphql.FieldConfigArgument{
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					code := p.Args["code"].(string)
					return deps.Catalog.ExactStop(p.Context, code)
				},
			},
			"routeStops": &graphql.Field{
				Type:        graphql.NewList(sequencedStopType),
				Description: "Ordered stop sequence of a route",
				Args: graphql.FieldConfigArgument{
					"route": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route, ok := parseRoute(p.Args["route"].(string))
					if !ok {
						return nil, fmt.Errorf("unknown route %q", p.Args["route"])
					}
					return deps.Membership.StopsOn(p.Context, route)
				},
			},
			"arrivals": &graphql.Field{
				Type:        graphql.NewList(arrivalType),
				Description: "Live shuttle arrivals for a route at a stop",
				Args: graphql.FieldConfigArgument{
					"stop_code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"route":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					route, ok := parseRoute(p.Args["route"].(string))
					if !ok {
						return nil, fmt.Errorf("unknown route %q", p.Args["route"])
					}
					return deps.Arrivals.ArrivalsFor(p.Context, p.Args["stop_code"].(string), route)
				},
			},
			"planItineraries": &graphql.Field{
				Type:        graphql.NewList(itineraryType),
				Description: "Find shuttle itineraries between two points",
				Args: graphql.FieldConfigArgument{
					"origin_lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"origin_lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"destination_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"destination_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.GeoPoint{Lat: p.Args["origin_lat"].(float64), Lon: p.Args["origin_lon"].(float64)}
					dest := domain.GeoPoint{Lat: p.Args["destination_lat"].(float64), Lon: p.Args["destination_lon"].(float64)}
					return deps.Planner.FindItineraries(p.Context, origin, dest)
				},
			},
			"compare": &graphql.Field{
				Type:        comparisonType,
				Description: "Plan itineraries and weigh the best against a baseline duration",
				Args: graphql.FieldConfigArgument{
					"origin_lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"origin_lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"destination_lat":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"destination_lon":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"baseline_seconds": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					origin := domain.GeoPoint{Lat: p.Args["origin_lat"].(float64), Lon: p.Args["origin_lon"].(float64)}
					dest := domain.GeoPoint{Lat: p.Args["destination_lat"].(float64), Lon: p.Args["destination_lon"].(float64)}
					var baseline *int
					if v, ok := p.Args["baseline_seconds"].(int); ok {
						baseline = &v
					}
					return deps.Planner.Compare(p.Context, origin, dest, baseline)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
