package ringct

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	serviceName = "ringct.RingCT_Service"

	methodGenerateVoters     = "Generate_Voter_and_Voting_Currency"
	methodGenerateCandidate  = "Generate_CandidateKeys"
	methodComputeVote        = "Compute_Vote"
	methodCalculateTotalVote = "Calculate_Total_Vote"
	methodFilterNonVoter     = "Filter_Non_Voter"
)

// schema holds the message descriptors of ringct.proto. The signer ships no Go
// stubs, so the file is declared here and messages are built with dynamicpb.
type schema struct {
	genVoterRequest      protoreflect.MessageDescriptor
	genVoterResponse     protoreflect.MessageDescriptor
	genCandidateRequest  protoreflect.MessageDescriptor
	genCandidateResponse protoreflect.MessageDescriptor
	voteRequest          protoreflect.MessageDescriptor
	voteResponse         protoreflect.MessageDescriptor
	totalVoteRequest     protoreflect.MessageDescriptor
	totalVoteResponse    protoreflect.MessageDescriptor
	filterRequest        protoreflect.MessageDescriptor
	filterResponse       protoreflect.MessageDescriptor
}

func loadSchema() (*schema, error) {
	file, err := protodesc.NewFile(fileDescriptorProto(), new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("build ringct descriptor: %w", err)
	}
	messages := file.Messages()
	lookup := func(name string) (protoreflect.MessageDescriptor, error) {
		md := messages.ByName(protoreflect.Name(name))
		if md == nil {
			return nil, fmt.Errorf("ringct descriptor missing message %s", name)
		}
		return md, nil
	}

	s := &schema{}
	targets := []struct {
		name string
		dst  *protoreflect.MessageDescriptor
	}{
		{"Gen_VoterCurr_Request", &s.genVoterRequest},
		{"Gen_VoterCurr_Response", &s.genVoterResponse},
		{"Gen_Candidate_Request", &s.genCandidateRequest},
		{"Gen_Candidate_Response", &s.genCandidateResponse},
		{"Vote_Request", &s.voteRequest},
		{"Vote_Response", &s.voteResponse},
		{"Calculate_Total_Vote_Request", &s.totalVoteRequest},
		{"Calculate_Total_Vote_Response", &s.totalVoteResponse},
		{"Filter_Non_Voter_Request", &s.filterRequest},
		{"Filter_Non_Voter_Response", &s.filterResponse},
	}
	for _, target := range targets {
		md, err := lookup(target.name)
		if err != nil {
			return nil, err
		}
		*target.dst = md
	}
	return s, nil
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	int32Field := func(name string, number int32) *descriptorpb.FieldDescriptorProto {
		return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
	}
	repeatedInt32 := func(name string, number int32) *descriptorpb.FieldDescriptorProto {
		return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_LABEL_REPEATED)
	}
	stringField := func(name string, number int32) *descriptorpb.FieldDescriptorProto {
		return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
	}
	boolField := func(name string, number int32) *descriptorpb.FieldDescriptorProto {
		return field(name, number, descriptorpb.FieldDescriptorProto_TYPE_BOOL, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL)
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ringct.proto"),
		Package: proto.String("ringct"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Gen_VoterCurr_Request", int32Field("district_id", 1), int32Field("voter_num", 2)),
			message("Gen_VoterCurr_Response", int32Field("district_id", 1), int32Field("voter_num", 2), stringField("test_output", 3)),
			message("Gen_Candidate_Request", int32Field("district_id", 1), int32Field("candidate_id", 2)),
			message("Gen_Candidate_Response", int32Field("district_id", 1), int32Field("candidate_id", 2), stringField("test_output", 3)),
			message("Vote_Request",
				int32Field("district_id", 1),
				int32Field("candidate_id", 2),
				int32Field("voter_id", 3),
				boolField("is_voting", 4),
			),
			message("Vote_Response",
				int32Field("district_id", 1),
				int32Field("candidate_id", 2),
				int32Field("voter_id", 3),
				stringField("key_image", 4),
				stringField("test_output", 5),
				boolField("has_voted", 6),
			),
			message("Calculate_Total_Vote_Request", repeatedInt32("district_ids", 1)),
			message("Calculate_Total_Vote_Response", repeatedInt32("district_ids", 1), stringField("test_output", 2)),
			message("Filter_Non_Voter_Request", repeatedInt32("district_ids", 1)),
			message("Filter_Non_Voter_Response", repeatedInt32("district_ids", 1), repeatedInt32("voter_ids", 2)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("RingCT_Service"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method(methodGenerateVoters, "Gen_VoterCurr_Request", "Gen_VoterCurr_Response"),
				method(methodGenerateCandidate, "Gen_Candidate_Request", "Gen_Candidate_Response"),
				method(methodComputeVote, "Vote_Request", "Vote_Response"),
				method(methodCalculateTotalVote, "Calculate_Total_Vote_Request", "Calculate_Total_Vote_Response"),
				method(methodFilterNonVoter, "Filter_Non_Voter_Request", "Filter_Non_Voter_Response"),
			},
		}},
	}
}

func field(
	name string,
	number int32,
	kind descriptorpb.FieldDescriptorProto_Type,
	label descriptorpb.FieldDescriptorProto_Label,
) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label.Enum(),
		Type:   kind.Enum(),
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func method(name string, input string, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(".ringct." + input),
		OutputType: proto.String(".ringct." + output),
	}
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func fieldOf(m *dynamicpb.Message, name string) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func setInt32(m *dynamicpb.Message, name string, value int32) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfInt32(value))
}

func setBool(m *dynamicpb.Message, name string, value bool) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfBool(value))
}

func setString(m *dynamicpb.Message, name string, value string) {
	m.Set(fieldOf(m, name), protoreflect.ValueOfString(value))
}

func appendInt32s(m *dynamicpb.Message, name string, values []int32) {
	list := m.Mutable(fieldOf(m, name)).List()
	for _, value := range values {
		list.Append(protoreflect.ValueOfInt32(value))
	}
}

func getInt32(m *dynamicpb.Message, name string) int32 {
	return int32(m.Get(fieldOf(m, name)).Int())
}

func getBool(m *dynamicpb.Message, name string) bool {
	return m.Get(fieldOf(m, name)).Bool()
}

func getString(m *dynamicpb.Message, name string) string {
	return m.Get(fieldOf(m, name)).String()
}

func getInt32s(m *dynamicpb.Message, name string) []int32 {
	list := m.Get(fieldOf(m, name)).List()
	items := make([]int32, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		items = append(items, int32(list.Get(i).Int()))
	}
	return items
}
